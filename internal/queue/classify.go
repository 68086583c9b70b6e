package queue

import "unified-thinking/internal/types"

// mutatingTools are the tools whose PostTool events classify as Medium
// priority rather than Low (§4.1).
var mutatingTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"Bash":         true,
	"NotebookEdit": true,
}

// Classify is the pure priority-classification function over an event
// (§4.1). High: UserPrompt/PostToolFailure/SessionStart/SessionEnd/Stop/
// Error/Learning. Medium: PostTool for a mutating tool. Low: everything
// else, including PreTool and PostTool for non-mutating tools.
func Classify(e *types.Event) types.Priority {
	switch e.Kind {
	case types.EventUserPrompt, types.EventPostToolFailure, types.EventSessionStart,
		types.EventSessionEnd, types.EventStop, types.EventError, types.EventLearning:
		return types.PriorityHigh
	case types.EventPostTool:
		if mutatingTools[e.ToolName] {
			return types.PriorityMedium
		}
		return types.PriorityLow
	default:
		return types.PriorityLow
	}
}

// priorityRank orders priorities for sorting: High first.
func priorityRank(p types.Priority) int {
	switch p {
	case types.PriorityHigh:
		return 0
	case types.PriorityMedium:
		return 1
	default:
		return 2
	}
}
