package evolution

import (
	"fmt"
	"time"

	"unified-thinking/internal/types"
)

// MetricFunc extracts the metric of interest from a report, so
// ComputeTrend works for any of LearningReport's four ratios or its
// quality score without four near-identical functions.
type MetricFunc func(*types.LearningReport) float64

var metricFuncs = map[string]MetricFunc{
	"high_value_ratio":      func(r *types.LearningReport) float64 { return r.HighValueRatio },
	"promotion_ratio":       func(r *types.LearningReport) float64 { return r.PromotionRatio },
	"outcome_linkage_ratio": func(r *types.LearningReport) float64 { return r.OutcomeLinkageRatio },
	"chip_coverage":         func(r *types.LearningReport) float64 { return r.ChipCoverage },
	"quality_score":         func(r *types.LearningReport) float64 { return r.QualityScore },
}

// ComputeTrend analyzes metric across reports generated within the last
// windowDays. Slope is estimated with ordinary least squares over
// (day-offset, value) pairs, generalizing
// benchmarks/evaluators.ComputeLearning's endpoint-to-endpoint rate to a
// full-window fit so a single noisy report doesn't dominate the read.
func ComputeTrend(metric string, reports []*types.LearningReport, windowDays int) *types.TrendAnalysis {
	if windowDays <= 0 {
		windowDays = 7
	}

	fn, ok := metricFuncs[metric]
	analysis := &types.TrendAnalysis{
		Metric:     metric,
		WindowDays: windowDays,
		ComputedAt: time.Now(),
	}
	if !ok || len(reports) == 0 {
		analysis.Alerts = append(analysis.Alerts, fmt.Sprintf("no data for metric %q", metric))
		return analysis
	}

	cutoff := time.Now().AddDate(0, 0, -windowDays)
	var xs, ys []float64
	var earliest time.Time
	for _, r := range reports {
		if r.GeneratedAt.Before(cutoff) {
			continue
		}
		if earliest.IsZero() || r.GeneratedAt.Before(earliest) {
			earliest = r.GeneratedAt
		}
	}
	for _, r := range reports {
		if r.GeneratedAt.Before(cutoff) {
			continue
		}
		days := r.GeneratedAt.Sub(earliest).Hours() / 24
		xs = append(xs, days)
		ys = append(ys, fn(r))
	}

	if len(xs) < 2 {
		analysis.Alerts = append(analysis.Alerts, fmt.Sprintf("insufficient samples for %q trend (%d in window)", metric, len(xs)))
		return analysis
	}

	analysis.Slope = leastSquaresSlope(xs, ys)
	analysis.Recommendations, analysis.Alerts = classifyTrend(metric, analysis.Slope, ys[len(ys)-1])
	return analysis
}

func leastSquaresSlope(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// classifyTrend mirrors benchmarks/evaluators.LearningTrend's tiered
// labeling, adapted from a single improvement-rate number to a
// per-day slope plus the metric's current level.
func classifyTrend(metric string, slope, current float64) (recommendations, alerts []string) {
	const significant = 0.01 // per-day change considered meaningful over a week

	switch {
	case slope <= -significant:
		alerts = append(alerts, fmt.Sprintf("%s declining at %.3f/day", metric, slope))
		recommendations = append(recommendations, fmt.Sprintf("investigate recent sessions contributing to the %s decline", metric))
	case slope >= significant:
		recommendations = append(recommendations, fmt.Sprintf("%s improving at %.3f/day, current thresholds are working", metric, slope))
	default:
		recommendations = append(recommendations, fmt.Sprintf("%s stable, no adjustment indicated", metric))
	}

	if current < 0.3 {
		alerts = append(alerts, fmt.Sprintf("%s currently low (%.2f)", metric, current))
	}

	return recommendations, alerts
}
