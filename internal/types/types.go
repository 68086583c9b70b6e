// Package types defines the core data structures shared across Spark's
// learning and validation spine: observed events, durable insights,
// exposures, predictions, outcomes, and the quality-gate verdict.
//
// These types are designed for concurrent access through deep copying in
// the storage layers (internal/queue, internal/cogstore, internal/semindex).
package types

import (
	"strings"
	"time"
)

// EventKind categorizes an observed agent event.
type EventKind string

const (
	EventUserPrompt      EventKind = "UserPrompt"
	EventPreTool         EventKind = "PreTool"
	EventPostTool        EventKind = "PostTool"
	EventPostToolFailure EventKind = "PostToolFailure"
	EventSessionStart    EventKind = "SessionStart"
	EventSessionEnd      EventKind = "SessionEnd"
	EventStop            EventKind = "Stop"
	EventLearning        EventKind = "Learning"
	EventError           EventKind = "Error"
)

// IsValid reports whether k is one of the known event kinds.
func (k EventKind) IsValid() bool {
	switch k {
	case EventUserPrompt, EventPreTool, EventPostTool, EventPostToolFailure,
		EventSessionStart, EventSessionEnd, EventStop, EventLearning, EventError:
		return true
	}
	return false
}

// Priority is the queue-classification tier assigned to an event (§4.1).
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Category partitions insights by cognitive domain (§3).
type Category string

const (
	CategorySelfAwareness     Category = "SelfAwareness"
	CategoryUserUnderstanding Category = "UserUnderstanding"
	CategoryReasoning         Category = "Reasoning"
	CategoryContext           Category = "Context"
	CategoryWisdom            Category = "Wisdom"
	CategoryMetaLearning      Category = "MetaLearning"
	CategoryCommunication     Category = "Communication"
	CategoryCreativity        Category = "Creativity"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategorySelfAwareness, CategoryUserUnderstanding, CategoryReasoning,
		CategoryContext, CategoryWisdom, CategoryMetaLearning,
		CategoryCommunication, CategoryCreativity:
		return true
	}
	return false
}

// AllCategories returns the full category set, used by C11 to measure what
// fraction of the category space a session's insights actually touched.
func AllCategories() []Category {
	return []Category{
		CategorySelfAwareness, CategoryUserUnderstanding, CategoryReasoning,
		CategoryContext, CategoryWisdom, CategoryMetaLearning,
		CategoryCommunication, CategoryCreativity,
	}
}

// HalfLifeDays returns the decay half-life, in days, for the category (§4.3).
func (c Category) HalfLifeDays() float64 {
	switch c {
	case CategoryUserUnderstanding:
		return 90
	case CategoryWisdom:
		return 180
	case CategoryMetaLearning:
		return 120
	case CategoryContext:
		return 45
	default:
		return 60
	}
}

// ActionDomain classifies the domain an insight's guidance applies to.
type ActionDomain string

const (
	DomainCode          ActionDomain = "code"
	DomainDepthTraining ActionDomain = "depth_training"
	DomainUserContext   ActionDomain = "user_context"
	DomainSystem        ActionDomain = "system"
	DomainGeneral       ActionDomain = "general"
)

// Polarity is the sentiment direction of a prediction or outcome.
type Polarity string

const (
	PolarityPositive Polarity = "pos"
	PolarityNegative Polarity = "neg"
	PolarityNeutral  Polarity = "neutral"
)

// PredictionType classifies the kind of claim a prediction makes (§3).
type PredictionType string

const (
	PredictionFailurePattern PredictionType = "failure_pattern"
	PredictionWorkflow       PredictionType = "workflow"
	PredictionPreference     PredictionType = "preference"
	PredictionPrinciple      PredictionType = "principle"
	PredictionGeneral        PredictionType = "general"
)

// Namespace separates production exposures from test-harness exposures (§9).
type Namespace string

const (
	NamespaceProd Namespace = "prod"
	NamespaceTest Namespace = "test"
)

// ContradictionType classifies why two insights are in tension (§4.9).
type ContradictionType string

const (
	ContradictionTemporal   ContradictionType = "Temporal"
	ContradictionContextual ContradictionType = "Contextual"
	ContradictionDirect     ContradictionType = "Direct"
	ContradictionUncertain  ContradictionType = "Uncertain"
)

// ContradictionAction is the resolution chosen for a detected contradiction.
type ContradictionAction string

const (
	ActionUpdate     ContradictionAction = "update"
	ActionContext    ContradictionAction = "context"
	ActionKeepBoth   ContradictionAction = "keep_both"
	ActionDiscardNew ContradictionAction = "discard_new"
)

// SuggestionStatus tracks the lifecycle of a candidate durable memory.
type SuggestionStatus string

const (
	SuggestionPending   SuggestionStatus = "pending"
	SuggestionAccepted  SuggestionStatus = "accepted"
	SuggestionRejected  SuggestionStatus = "rejected"
	SuggestionAutoSaved SuggestionStatus = "auto_saved"
)

// RoastVerdictKind is the sum-type tag for a quality-gate classification (§4.5).
type RoastVerdictKind string

const (
	VerdictPrimitive RoastVerdictKind = "Primitive"
	VerdictDuplicate RoastVerdictKind = "Duplicate"
	VerdictNeedsWork RoastVerdictKind = "NeedsWork"
	VerdictQuality   RoastVerdictKind = "Quality"
)

// Event is an immutable observation of agent behavior (§3). Once created by
// ingest and appended to the queue, an Event is never mutated.
type Event struct {
	ID        string                 `json:"id"`
	Kind      EventKind              `json:"kind"`
	SessionID string                 `json:"session_id"`
	Timestamp time.Time              `json:"timestamp"`
	TraceID   string                 `json:"trace_id"`
	ToolName  string                 `json:"tool_name,omitempty"`
	ToolInput map[string]interface{} `json:"tool_input,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Insight is a durable cognitive record held by the cognitive store (§3).
type Insight struct {
	Key               string                 `json:"key"`
	Category          Category               `json:"category"`
	Text              string                 `json:"text"`
	Context           string                 `json:"context,omitempty"`
	Confidence        float64                `json:"confidence"`
	Evidence          []string               `json:"evidence,omitempty"`
	CounterExamples   []string               `json:"counter_examples,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	LastValidatedAt   *time.Time             `json:"last_validated_at,omitempty"`
	TimesValidated    int                    `json:"times_validated"`
	TimesContradicted int                    `json:"times_contradicted"`
	Promoted          bool                   `json:"promoted"`
	PromotedTo        string                 `json:"promoted_to,omitempty"`
	Source            string                 `json:"source"`
	ActionDomain      ActionDomain           `json:"action_domain"`
	EmotionState      map[string]interface{} `json:"emotion_state,omitempty"`
	AdvisoryQuality   *float64               `json:"advisory_quality,omitempty"`
	AdvisoryReadiness float64                `json:"advisory_readiness"`
}

// MaxEvidenceRing and MaxCounterExampleRing bound the Insight evidence rings (§3).
const (
	MaxEvidenceRing       = 10
	MaxCounterExampleRing = 10
)

// telemetryEvidenceMarkers flags evidence entries that look like raw tool
// telemetry rather than substantive supporting text. A smaller, local
// mirror of qualitygate's toolTelemetryMarkers/heavyUsageMarkers — C5's
// own package can't be imported here without an import cycle (qualitygate
// already depends on types), so this package carries its own copy of the
// few markers relevant to evidence weighting.
var telemetryEvidenceMarkers = []string{
	"tool_use_id", "tool_result", "stdout:", "stderr:", "exit code",
	"exit status", "tokens used", "cache_read_input_tokens", "rate limit",
}

// telemetryWeight discounts reliability when an insight's supporting
// evidence is dominated by tool-telemetry text rather than substantive
// observations: 1.0 with no telemetry-heavy evidence, down to 0.5 when
// every evidence entry is telemetry.
func telemetryWeight(evidence []string) float64 {
	if len(evidence) == 0 {
		return 1.0
	}
	telemetryCount := 0
	for _, e := range evidence {
		lower := strings.ToLower(e)
		for _, m := range telemetryEvidenceMarkers {
			if strings.Contains(lower, m) {
				telemetryCount++
				break
			}
		}
	}
	fraction := float64(telemetryCount) / float64(len(evidence))
	return 1 - 0.5*fraction
}

// Reliability computes validated/(validated+contradicted), discounted by
// telemetryWeight for telemetry-heavy evidence (§3's "adjusted by a
// quality weight that discounts telemetry-heavy evidence"). Age-based
// decay is a separate concern applied on top by
// cogstore.EffectiveReliability (§4.3).
func (i *Insight) Reliability() float64 {
	total := i.TimesValidated + i.TimesContradicted
	if total == 0 {
		return 0
	}
	r := float64(i.TimesValidated) / float64(total)
	r *= telemetryWeight(i.Evidence)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// Exposure records that an insight was surfaced to a consumer (§3).
type Exposure struct {
	Timestamp  time.Time `json:"ts"`
	SessionID  string    `json:"session"`
	TraceID    string    `json:"trace_id"`
	Source     string    `json:"source"`
	InsightKey string    `json:"insight_key"`
}

// Prediction is generated from an exposure (§3).
type Prediction struct {
	PredictionID     string         `json:"prediction_id"`
	InsightKey       string         `json:"insight_key"`
	Text             string         `json:"text"`
	ExpectedPolarity Polarity       `json:"expected_polarity"`
	Type             PredictionType `json:"type"`
	CreatedAt        time.Time      `json:"created_at"`
	ExpiresAt        time.Time      `json:"expires_at"`
	Source           string         `json:"source"`
	Namespace        Namespace      `json:"namespace"`

	// Outcome, once matched.
	OutcomeID string `json:"outcome_id,omitempty"`
	Validated *bool  `json:"validated,omitempty"`
}

// Outcome is an observed signal extracted from events (§3).
type Outcome struct {
	OutcomeID      string    `json:"outcome_id"`
	EventType      EventKind `json:"event_type"`
	Tool           string    `json:"tool,omitempty"`
	Text           string    `json:"text"`
	Polarity       Polarity  `json:"polarity"`
	CreatedAt      time.Time `json:"created_at"`
	TraceID        string    `json:"trace_id,omitempty"`
	Domain         string    `json:"domain,omitempty"`
	LinkedInsights []string  `json:"linked_insights,omitempty"`
}

// RoastVerdict is the sum type produced by the quality gate (§3, §4.5).
// Refined is populated only for NeedsWork and, optionally, Quality.
type RoastVerdict struct {
	Kind    RoastVerdictKind `json:"kind"`
	Refined *string          `json:"refined,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}

// IsPassable reports whether a verdict permits the candidate to reach C3.
func (v RoastVerdict) IsPassable() bool {
	return v.Kind == VerdictNeedsWork || v.Kind == VerdictQuality
}

// Suggestion is a candidate durable memory awaiting a storage decision (§3).
type Suggestion struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Status    SuggestionStatus       `json:"status"`
	Score     float64                `json:"score"`
	Breakdown map[string]float64     `json:"breakdown,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Contradiction is a persisted record of a detected tension between an
// existing insight and a new candidate text (§4.9).
type Contradiction struct {
	ID         string              `json:"id"`
	OldKey     string              `json:"old_key"`
	NewText    string              `json:"new_text"`
	Type       ContradictionType   `json:"type"`
	Action     ContradictionAction `json:"action"`
	DetectedAt time.Time           `json:"detected_at"`
}

// LearningReport aggregates one session's learning quality (§4.11).
type LearningReport struct {
	SessionID           string    `json:"session_id"`
	HighValueRatio      float64   `json:"high_value_ratio"`
	PromotionRatio      float64   `json:"promotion_ratio"`
	OutcomeLinkageRatio float64   `json:"outcome_linkage_ratio"`
	ChipCoverage        float64   `json:"chip_coverage"`
	QualityScore        float64   `json:"quality_score"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// TrendAnalysis is a slope-based trend computed over a rolling window (§4.11).
type TrendAnalysis struct {
	Metric          string    `json:"metric"`
	WindowDays      int       `json:"window_days"`
	Slope           float64   `json:"slope"`
	Recommendations []string  `json:"recommendations,omitempty"`
	Alerts          []string  `json:"alerts,omitempty"`
	ComputedAt      time.Time `json:"computed_at"`
}

// SelfEvaluation represents a metacognitive self-assessment of one
// pipeline cycle's or session's output (adapted for evolution/meta-learning).
type SelfEvaluation struct {
	ID                     string                 `json:"id"`
	SessionID              string                 `json:"session_id,omitempty"`
	QualityScore           float64                `json:"quality_score"`
	CompletenessScore      float64                `json:"completeness_score"`
	CoherenceScore         float64                `json:"coherence_score"`
	Strengths              []string               `json:"strengths"`
	Weaknesses             []string               `json:"weaknesses"`
	ImprovementSuggestions []string               `json:"improvement_suggestions"`
	Metadata               map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
}
