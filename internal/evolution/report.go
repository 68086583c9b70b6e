// Package evolution implements the Evolution / Meta-Learning loop (C11,
// §4.11): a per-session LearningReport, a TrendAnalysis over historical
// reports, and a LearningStrategist that nudges tuneables within safety
// bands based on the observed trend.
package evolution

import (
	"strings"
	"time"

	"unified-thinking/internal/types"
)

// InsightSource is the slice of C3 the report builder reads from.
type InsightSource interface {
	Get(key string) (*types.Insight, bool)
}

// ExposureSource is the slice of C3 that tracks which insight surfaced in
// which session (§4.7's exposure log, already written by the pipeline).
type ExposureSource interface {
	Exposures(since time.Time) []*types.Exposure
}

// PredictionSource is the slice of C8 the report builder reads linkage
// stats from.
type PredictionSource interface {
	AllPredictions() []*types.Prediction
}

// ReportConfig bounds report generation.
type ReportConfig struct {
	HighValueReliability float64 // reliability floor counted as "high value"
	Lookback             time.Duration

	// Weights for the quality score mix; must sum to roughly 1 but are not
	// enforced to, since a caller intentionally overweighting one signal
	// is a tuning choice, not an error.
	WeightHighValue      float64
	WeightPromotion      float64
	WeightOutcomeLinkage float64
	WeightChipCoverage   float64
}

func (c *ReportConfig) setDefaults() {
	if c.HighValueReliability <= 0 {
		c.HighValueReliability = 0.7
	}
	if c.Lookback <= 0 {
		c.Lookback = 24 * time.Hour
	}
	if c.WeightHighValue == 0 && c.WeightPromotion == 0 && c.WeightOutcomeLinkage == 0 && c.WeightChipCoverage == 0 {
		c.WeightHighValue = 0.35
		c.WeightPromotion = 0.25
		c.WeightOutcomeLinkage = 0.25
		c.WeightChipCoverage = 0.15
	}
}

// Reporter builds LearningReports from the session's exposure trail.
type Reporter struct {
	cfg         ReportConfig
	insights    InsightSource
	exposures   ExposureSource
	predictions PredictionSource
}

// NewReporter builds a Reporter.
func NewReporter(cfg ReportConfig, insights InsightSource, exposures ExposureSource, predictions PredictionSource) *Reporter {
	cfg.setDefaults()
	return &Reporter{cfg: cfg, insights: insights, exposures: exposures, predictions: predictions}
}

// Generate computes sessionID's LearningReport from the insights exposed
// to it within the configured lookback window. "Chip coverage" is the
// fraction of the category space (§3's eight cognitive domains, each a
// chip a consumer can draw advisories from) the session's exposed
// insights actually touched — an empty session therefore scores zero
// coverage rather than an undefined one.
func (r *Reporter) Generate(sessionID string) *types.LearningReport {
	since := time.Now().Add(-r.cfg.Lookback)
	keys := map[string]bool{}
	for _, e := range r.exposures.Exposures(since) {
		if e.SessionID == sessionID {
			keys[e.InsightKey] = true
		}
	}

	var sessionInsights []*types.Insight
	for key := range keys {
		if ins, ok := r.insights.Get(key); ok {
			sessionInsights = append(sessionInsights, ins)
		}
	}

	report := &types.LearningReport{
		SessionID:   sessionID,
		GeneratedAt: time.Now(),
	}

	if len(sessionInsights) == 0 {
		return report
	}

	highValue, promoted := 0, 0
	categoriesSeen := map[types.Category]bool{}
	for _, ins := range sessionInsights {
		if ins.Reliability() >= r.cfg.HighValueReliability {
			highValue++
		}
		if ins.Promoted {
			promoted++
		}
		categoriesSeen[ins.Category] = true
	}

	report.HighValueRatio = float64(highValue) / float64(len(sessionInsights))
	report.PromotionRatio = float64(promoted) / float64(len(sessionInsights))
	report.ChipCoverage = float64(len(categoriesSeen)) / float64(len(types.AllCategories()))
	report.OutcomeLinkageRatio = outcomeLinkageRatio(r.predictions.AllPredictions(), keys)

	report.QualityScore = r.cfg.WeightHighValue*report.HighValueRatio +
		r.cfg.WeightPromotion*report.PromotionRatio +
		r.cfg.WeightOutcomeLinkage*report.OutcomeLinkageRatio +
		r.cfg.WeightChipCoverage*report.ChipCoverage

	return report
}

func outcomeLinkageRatio(predictions []*types.Prediction, sessionKeys map[string]bool) float64 {
	total, linked := 0, 0
	for _, p := range predictions {
		if !sessionKeys[p.InsightKey] {
			continue
		}
		total++
		if p.OutcomeID != "" {
			linked++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(linked) / float64(total)
}

// GenerateSelfEvaluation assesses the session's insight corpus the way
// the original per-thought self-evaluator assessed a single thought's
// content, generalized from one thought's text to one session's
// accumulated insight texts (grounded on
// internal/metacognition/self_eval.go's assess/identify/suggest
// pipeline).
func GenerateSelfEvaluation(sessionID string, report *types.LearningReport, insights []*types.Insight) *types.SelfEvaluation {
	quality := assessQuality(report)
	completeness := assessCompleteness(insights, report)
	coherence := assessCoherence(insights)

	strengths := identifyStrengths(report, quality, completeness, coherence)
	weaknesses := identifyWeaknesses(report, quality, completeness, coherence)

	return &types.SelfEvaluation{
		ID:                     types.ContentHash(sessionID, report.GeneratedAt.String()),
		SessionID:              sessionID,
		QualityScore:           quality,
		CompletenessScore:      completeness,
		CoherenceScore:         coherence,
		Strengths:              strengths,
		Weaknesses:             weaknesses,
		ImprovementSuggestions: suggestImprovements(weaknesses),
		Metadata:               map[string]interface{}{"insight_count": len(insights)},
		CreatedAt:              time.Now(),
	}
}

func assessQuality(report *types.LearningReport) float64 {
	score := 0.4 + 0.3*report.HighValueRatio + 0.3*report.PromotionRatio
	return clamp(score, 0, 1)
}

func assessCompleteness(insights []*types.Insight, report *types.LearningReport) float64 {
	score := 0.3 + 0.5*report.ChipCoverage
	if len(insights) >= 10 {
		score += 0.2
	} else if len(insights) >= 5 {
		score += 0.1
	}
	return clamp(score, 0, 1)
}

func assessCoherence(insights []*types.Insight) float64 {
	if len(insights) == 0 {
		return 0
	}
	contradicted := 0
	for _, ins := range insights {
		if ins.TimesContradicted > 0 {
			contradicted++
		}
	}
	rate := float64(contradicted) / float64(len(insights))
	return clamp(1-rate, 0, 1)
}

func identifyStrengths(report *types.LearningReport, quality, completeness, coherence float64) []string {
	var out []string
	if quality >= 0.7 {
		out = append(out, "High proportion of session insights reaching high-value reliability")
	}
	if report.PromotionRatio >= 0.3 {
		out = append(out, "Strong promotion ratio for this session's insights")
	}
	if completeness >= 0.7 {
		out = append(out, "Session insights span most of the category space")
	}
	if coherence >= 0.8 {
		out = append(out, "Session insights show little internal contradiction")
	}
	if report.OutcomeLinkageRatio >= 0.5 {
		out = append(out, "Most predictions from this session resolved to a real outcome")
	}
	return out
}

func identifyWeaknesses(report *types.LearningReport, quality, completeness, coherence float64) []string {
	var out []string
	if quality < 0.4 {
		out = append(out, "Few session insights reached high-value reliability")
	}
	if completeness < 0.4 {
		out = append(out, "Session insights covered only a narrow slice of the category space")
	}
	if coherence < 0.6 {
		out = append(out, "Session insights were frequently contradicted")
	}
	if report.OutcomeLinkageRatio < 0.2 {
		out = append(out, "Predictions from this session rarely linked to an outcome")
	}
	return out
}

func suggestImprovements(weaknesses []string) []string {
	var out []string
	for _, w := range weaknesses {
		switch {
		case strings.Contains(w, "high-value"):
			out = append(out, "Raise the confidence bar for candidates admitted this session")
		case strings.Contains(w, "category space"):
			out = append(out, "Broaden distillation prompts to surface insights outside the dominant category")
		case strings.Contains(w, "contradicted"):
			out = append(out, "Review contradiction records for this session's categories before the next cycle")
		case strings.Contains(w, "outcome"):
			out = append(out, "Tighten the prediction match window or widen the outcome extraction rules")
		}
	}
	return out
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
