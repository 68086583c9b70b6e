package qualitygate

import (
	"context"
	"fmt"

	"unified-thinking/internal/types"
)

// RoastException is returned by Gate.Roast when a sub-judge panics or
// fails unrecoverably, so C6 can branch on it explicitly rather than
// relying on a recovered panic (SPEC_FULL's redesign flag: "treat
// RoastException as an explicit variant returned by C5").
type RoastException struct {
	Stage string
	Err   error
}

func (e *RoastException) Error() string {
	return fmt.Sprintf("qualitygate: roast exception at stage %q: %v", e.Stage, e.Err)
}

func (e *RoastException) Unwrap() error { return e.Err }

// Gate composes the three §4.5 sub-judges into roast().
type Gate struct {
	Advisory  AdvisoryTransformer
	Duplicate *DuplicateDetector
}

// NewGate builds a Gate. advisory may be nil (defaults to
// NoAdvisoryTransformer); duplicate may be nil to skip that check.
func NewGate(advisory AdvisoryTransformer, duplicate *DuplicateDetector) *Gate {
	if advisory == nil {
		advisory = NoAdvisoryTransformer{}
	}
	return &Gate{Advisory: advisory, Duplicate: duplicate}
}

// Roast runs text through the noise filter, the advisory-quality
// transformer, and the duplicate detector, producing a RoastVerdict
// (§4.5). A sub-judge error surfaces as a *RoastException rather than a
// Go panic so C6 can quarantine deterministically.
func (g *Gate) Roast(ctx context.Context, text, source string) (types.RoastVerdict, error) {
	if noisy, reason := IsNoise(text); noisy {
		return types.RoastVerdict{Kind: types.VerdictPrimitive, Reason: reason}, nil
	}

	advisory, err := g.Advisory.Assess(ctx, text, source)
	if err != nil {
		return types.RoastVerdict{}, &RoastException{Stage: "advisory", Err: err}
	}
	if advisory != nil && advisory.Suppressed {
		return types.RoastVerdict{Kind: types.VerdictPrimitive, Reason: "advisory-suppressed"}, nil
	}

	if g.Duplicate != nil {
		dup, err := g.Duplicate.IsDuplicate(ctx, text)
		if err != nil {
			return types.RoastVerdict{}, &RoastException{Stage: "duplicate", Err: err}
		}
		if dup {
			return types.RoastVerdict{Kind: types.VerdictDuplicate, Reason: "near-duplicate"}, nil
		}
	}

	if isBorderline(text) {
		if refined, changed := refine(text); changed {
			return types.RoastVerdict{Kind: types.VerdictNeedsWork, Refined: &refined, Reason: "borderline-refined"}, nil
		}
	}

	if refined, changed := refine(text); changed {
		return types.RoastVerdict{Kind: types.VerdictQuality, Refined: &refined}, nil
	}

	return types.RoastVerdict{Kind: types.VerdictQuality}, nil
}
