package pipeline

import (
	"context"

	"unified-thinking/internal/types"
)

// PatternAggregator is the external collaborator referenced by §4.7 step 3,
// specified only by its two contracts. The engine treats any error from
// either call as "pattern detection failed," which blocks queue.consume
// for the cycle so the same events are retried next time.
type PatternAggregator interface {
	ProcessEvent(ctx context.Context, e *types.Event) error
	TriggerLearning(ctx context.Context) error
}
