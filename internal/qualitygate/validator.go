package qualitygate

import (
	"context"
	"log"
	"time"

	"unified-thinking/internal/semindex"
	"unified-thinking/internal/types"
)

// Store is the slice of C3's interface the validator writes through.
type Store interface {
	AddInsight(candidate *types.Insight) (bool, error)
}

// Indexer is the slice of C4's interface the validator writes through
// once a candidate is stored.
type Indexer interface {
	IndexMemory(ctx context.Context, m semindex.Memory) error
}

// Candidate is the input to Validator.Validate: free text plus the
// metadata needed to build an Insight if it survives the gate.
type Candidate struct {
	Text       string
	Source     string
	Category   types.Category
	Context    string
	Confidence float64
}

// ContradictionChecker is C9's slice of the validator pipeline, run just
// before a survivor is written to the store.
type ContradictionChecker interface {
	Check(ctx context.Context, newText string, category types.Category, newConfidence float64) (*types.Contradiction, error)
}

// Validator is C6, the only legal write path into the cognitive store.
type Validator struct {
	Gate          *Gate
	Store         Store
	Index         Indexer
	Quarantine    *QuarantineWriter
	Telemetry     *Telemetry
	Contradiction ContradictionChecker

	// FeatureEnabled gates the quality gate itself; when false, Validate
	// writes directly via Store (§4.6's "feature-gate off" rollback path).
	FeatureEnabled bool
}

// NewValidator builds a Validator. telemetry/quarantine may be nil to
// disable those side channels.
func NewValidator(gate *Gate, store Store, index Indexer, quarantine *QuarantineWriter, telemetry *Telemetry) *Validator {
	return &Validator{
		Gate:           gate,
		Store:          store,
		Index:          index,
		Quarantine:     quarantine,
		Telemetry:      telemetry,
		FeatureEnabled: true,
	}
}

// Validate runs the §4.6 algorithm: feature-gate bypass, attempt
// telemetry, roast with exception-to-quarantine handling, verdict
// matching, and the C3+C4 write on success.
func (v *Validator) Validate(ctx context.Context, c Candidate) (bool, error) {
	if v.Telemetry != nil {
		v.Telemetry.recordAttempt()
	}

	if !v.FeatureEnabled {
		return v.store(ctx, c, c.Text)
	}

	verdict, err := v.Gate.Roast(ctx, c.Text, c.Source)
	if err != nil {
		v.quarantine(c, "roast_exception", err.Error())
		if v.Telemetry != nil {
			v.Telemetry.recordOutcome("roast_exception")
		}
		return false, nil
	}

	switch verdict.Kind {
	case types.VerdictPrimitive:
		if v.Telemetry != nil {
			v.Telemetry.recordOutcome("noise")
		}
		return false, nil
	case types.VerdictDuplicate:
		if v.Telemetry != nil {
			v.Telemetry.recordOutcome("duplicate")
		}
		return false, nil
	}

	text := c.Text
	if verdict.Refined != nil {
		text = *verdict.Refined
	}

	stored, err := v.store(ctx, c, text)
	if err != nil {
		v.quarantine(c, "storage_failure", err.Error())
		if v.Telemetry != nil {
			v.Telemetry.recordOutcome("storage_failure")
		}
		return false, nil
	}
	if stored && v.Telemetry != nil {
		v.Telemetry.recordOutcome("stored")
	} else if !stored && v.Telemetry != nil {
		v.Telemetry.recordOutcome("needs_work")
	}
	return stored, nil
}

func (v *Validator) store(ctx context.Context, c Candidate, text string) (bool, error) {
	if v.Contradiction != nil {
		confidence := c.Confidence
		if confidence == 0 {
			confidence = 0.7 // matches NewInsightBuilder's default
		}
		record, err := v.Contradiction.Check(ctx, text, c.Category, confidence)
		if err != nil {
			log.Printf("qualitygate: C9 contradiction check failed: %v", err)
		}
		if record != nil && record.Action == types.ActionDiscardNew {
			if v.Telemetry != nil {
				v.Telemetry.recordOutcome("contradiction_discarded")
			}
			return false, nil
		}
	}

	builder := types.NewInsightBuilder().
		Category(c.Category).
		Text(text).
		Source(c.Source).
		Context(c.Context)
	if c.Confidence > 0 {
		builder = builder.Confidence(c.Confidence)
	}
	candidate := builder.Build()

	stored, err := v.Store.AddInsight(candidate)
	if err != nil {
		return false, err
	}
	if !stored {
		return false, nil
	}

	if v.Index != nil {
		if err := v.Index.IndexMemory(ctx, semindex.Memory{
			ID:         candidate.Key,
			Content:    candidate.Text,
			Category:   string(candidate.Category),
			Source:     candidate.Source,
			CreatedAt:  time.Now(),
		}); err != nil {
			log.Printf("qualitygate: C4 index failed for %s: %v", candidate.Key, err)
		}
	}

	return true, nil
}

func (v *Validator) quarantine(c Candidate, stage, reason string) {
	if v.Quarantine == nil {
		log.Printf("qualitygate: quarantine disabled, dropping candidate at stage %q: %v", stage, reason)
		return
	}
	if err := v.Quarantine.Write(QuarantineRecord{
		Timestamp: time.Now(),
		Text:      c.Text,
		Source:    c.Source,
		Stage:     stage,
		Reason:    reason,
	}); err != nil {
		log.Printf("qualitygate: failed to write quarantine record: %v", err)
	}
}
