package evolution

import (
	"testing"
	"time"

	"unified-thinking/internal/types"
)

func reportAt(daysAgo int, quality float64) *types.LearningReport {
	return &types.LearningReport{
		QualityScore: quality,
		GeneratedAt:  time.Now().AddDate(0, 0, -daysAgo),
	}
}

func TestComputeTrendDetectsDecline(t *testing.T) {
	reports := []*types.LearningReport{
		reportAt(6, 0.8),
		reportAt(4, 0.6),
		reportAt(2, 0.4),
		reportAt(0, 0.2),
	}

	trend := ComputeTrend("quality_score", reports, 7)

	if trend.Slope >= 0 {
		t.Fatalf("Slope = %v, want negative (declining trend)", trend.Slope)
	}
	if len(trend.Alerts) == 0 {
		t.Fatal("expected an alert for a declining trend")
	}
}

func TestComputeTrendDetectsImprovement(t *testing.T) {
	reports := []*types.LearningReport{
		reportAt(6, 0.3),
		reportAt(4, 0.5),
		reportAt(2, 0.7),
		reportAt(0, 0.9),
	}

	trend := ComputeTrend("quality_score", reports, 7)

	if trend.Slope <= 0 {
		t.Fatalf("Slope = %v, want positive (improving trend)", trend.Slope)
	}
}

func TestComputeTrendUnknownMetricAlerts(t *testing.T) {
	trend := ComputeTrend("not_a_real_metric", []*types.LearningReport{reportAt(0, 0.5)}, 7)
	if len(trend.Alerts) == 0 {
		t.Fatal("expected an alert for an unknown metric")
	}
}

func TestComputeTrendInsufficientSamples(t *testing.T) {
	trend := ComputeTrend("quality_score", []*types.LearningReport{reportAt(0, 0.5)}, 7)
	if len(trend.Alerts) == 0 {
		t.Fatal("expected an alert when fewer than two samples fall in the window")
	}
}
