package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"unified-thinking/internal/types"
)

// DerivedInsight is text extracted from a batch of events, ready to be
// routed through C6 (§4.7 step 5). Confidence of 0 means "let C6's
// builder apply its own default" — only extractors that the spec pins to
// a specific confidence set it explicitly.
type DerivedInsight struct {
	Text       string
	Source     string
	Category   types.Category
	Confidence float64
}

// ExtractDeepLearnings runs the §4.7 step 4 extractors plus the
// hard-trigger memory-capture check over a batch in original arrival
// order and returns one derived insight per aggregated finding.
// Per-occurrence noise is deliberately never emitted here; deduplication
// happens by aggregating before producing text at all.
func ExtractDeepLearnings(events []*types.Event) []DerivedInsight {
	var out []DerivedInsight
	out = append(out, memoryCapture(events)...)
	out = append(out, toolEffectiveness(events)...)
	out = append(out, errorPatterns(events)...)
	out = append(out, sessionWorkflows(events)...)
	return out
}

// hardTriggerCue is the explicit "remember this" cue (§8 scenario 1) that
// bypasses the usual aggregation-based extractors: a user asking to
// remember something is itself the signal, with no occurrence threshold.
const hardTriggerCue = "remember this:"

// promptTextKeys mirrors internal/predictloop/outcome.go's promptText
// convention: no prior codebase convention exists for which payload key
// holds a UserPrompt's text, so "prompt" is checked first with
// "content"/"text" as fallbacks.
var promptTextKeys = []string{"prompt", "content", "text"}

func promptText(e *types.Event) string {
	for _, k := range promptTextKeys {
		if v, ok := e.Payload[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// memoryCapture scans UserPrompt events for the "remember this:" hard
// trigger and emits one MetaLearning insight per occurrence, stripped of
// the cue itself (§8 scenario 1: "Remember this: always use bcrypt for
// password hashing" stores with text prefix "always use bcrypt").
func memoryCapture(events []*types.Event) []DerivedInsight {
	var out []DerivedInsight
	for _, e := range events {
		if e.Kind != types.EventUserPrompt {
			continue
		}
		text := promptText(e)
		lower := strings.ToLower(text)
		idx := strings.Index(lower, hardTriggerCue)
		if idx == -1 {
			continue
		}
		remembered := strings.TrimSpace(text[idx+len(hardTriggerCue):])
		if remembered == "" {
			continue
		}
		out = append(out, DerivedInsight{
			Text:       remembered,
			Source:     "memory_capture",
			Category:   types.CategoryMetaLearning,
			Confidence: 0.8,
		})
	}
	return out
}

type toolStats struct {
	tool      string
	successes int
	failures  int
	errors    []string
}

// toolEffectiveness aggregates per-tool success/failure counts, the top-3
// distinct error messages, and same-tool fail-then-succeed recoveries
// within a session (§4.7 step 4, tool effectiveness).
func toolEffectiveness(events []*types.Event) []DerivedInsight {
	stats := map[string]*toolStats{}
	order := []string{}
	for _, e := range events {
		if e.ToolName == "" {
			continue
		}
		s, ok := stats[e.ToolName]
		if !ok {
			s = &toolStats{tool: e.ToolName}
			stats[e.ToolName] = s
			order = append(order, e.ToolName)
		}
		switch e.Kind {
		case types.EventPostTool:
			s.successes++
		case types.EventPostToolFailure:
			s.failures++
			if e.Error != "" {
				s.errors = append(s.errors, e.Error)
			}
		}
	}

	recoveries := recoveryPatterns(events)

	var out []DerivedInsight
	for _, tool := range order {
		s := stats[tool]
		total := s.successes + s.failures
		if total < 2 {
			continue
		}
		rate := float64(s.successes) / float64(total)
		text := fmt.Sprintf("tool %s succeeded %d/%d times (%.0f%%) across the observed batch",
			tool, s.successes, total, rate*100)
		if top := topErrors(s.errors, 3); len(top) > 0 {
			text += fmt.Sprintf("; recurring errors: %s", strings.Join(top, "; "))
		}
		out = append(out, DerivedInsight{
			Text:     text,
			Source:   "pipeline:tool_effectiveness",
			Category: types.CategorySelfAwareness,
		})
	}

	recoveredTools := make([]string, 0, len(recoveries))
	for tool := range recoveries {
		recoveredTools = append(recoveredTools, tool)
	}
	sort.Strings(recoveredTools)
	for _, tool := range recoveredTools {
		out = append(out, DerivedInsight{
			Text:     fmt.Sprintf("tool %s recovered from failure within the same session %d time(s) by retrying", tool, recoveries[tool]),
			Source:   "pipeline:tool_effectiveness",
			Category: types.CategorySelfAwareness,
		})
	}
	return out
}

// recoveryPatterns counts, per tool, how many times a PostToolFailure for
// that tool was immediately followed (within the same session) by a
// PostTool success for the same tool.
func recoveryPatterns(events []*types.Event) map[string]int {
	counts := map[string]int{}
	bySession := map[string][]*types.Event{}
	sessionOrder := []string{}
	for _, e := range events {
		if _, ok := bySession[e.SessionID]; !ok {
			sessionOrder = append(sessionOrder, e.SessionID)
		}
		bySession[e.SessionID] = append(bySession[e.SessionID], e)
	}
	for _, sid := range sessionOrder {
		stream := bySession[sid]
		for i := 0; i+1 < len(stream); i++ {
			cur, next := stream[i], stream[i+1]
			if cur.Kind == types.EventPostToolFailure && next.Kind == types.EventPostTool &&
				cur.ToolName != "" && cur.ToolName == next.ToolName {
				counts[cur.ToolName]++
			}
		}
	}
	return counts
}

func topErrors(errs []string, n int) []string {
	if len(errs) == 0 {
		return nil
	}
	counts := map[string]int{}
	for _, e := range errs {
		counts[truncate(e, 100)]++
	}
	type kv struct {
		msg   string
		count int
	}
	kvs := make([]kv, 0, len(counts))
	for msg, c := range counts {
		kvs = append(kvs, kv{msg, c})
	}
	sort.Slice(kvs, func(i, j int) bool {
		if kvs[i].count != kvs[j].count {
			return kvs[i].count > kvs[j].count
		}
		return kvs[i].msg < kvs[j].msg
	})
	if len(kvs) > n {
		kvs = kvs[:n]
	}
	out := make([]string, len(kvs))
	for i, k := range kvs {
		out[i] = fmt.Sprintf("%q (x%d)", k.msg, k.count)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// errorPatterns groups failures by (tool, error prefix) and emits one
// aggregated insight per group with at least 2 occurrences (§4.7 step 4,
// error patterns).
func errorPatterns(events []*types.Event) []DerivedInsight {
	type key struct{ tool, errPrefix string }
	counts := map[key]int{}
	order := []key{}
	for _, e := range events {
		if e.Kind != types.EventPostToolFailure || e.Error == "" {
			continue
		}
		k := key{tool: e.ToolName, errPrefix: truncate(e.Error, 100)}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	var out []DerivedInsight
	for _, k := range order {
		c := counts[k]
		if c < 2 {
			continue
		}
		out = append(out, DerivedInsight{
			Text:       fmt.Sprintf("tool %s repeatedly fails with %q (%d occurrences in this batch)", k.tool, k.errPrefix, c),
			Source:     "pipeline:error_patterns",
			Category:   types.CategorySelfAwareness,
			Confidence: 0.75,
		})
	}
	return out
}

// sessionWorkflows scans per-session tool streams for runs of 3+
// consecutive failures and for Edit calls not preceded anywhere earlier in
// the session by a Read, emitting only session-count aggregates (§4.7
// step 4, session workflows).
func sessionWorkflows(events []*types.Event) []DerivedInsight {
	bySession := map[string][]*types.Event{}
	sessionOrder := []string{}
	for _, e := range events {
		if e.SessionID == "" {
			continue
		}
		if _, ok := bySession[e.SessionID]; !ok {
			sessionOrder = append(sessionOrder, e.SessionID)
		}
		bySession[e.SessionID] = append(bySession[e.SessionID], e)
	}

	sessionsWithFailureStreak := 0
	riskyEditSessions := 0
	riskyEditCount := 0

	for _, sid := range sessionOrder {
		stream := bySession[sid]
		consecutiveFailures := 0
		sawRead := false
		riskyThisSession := false
		flaggedThisSession := false
		for _, e := range stream {
			if e.Kind == types.EventPostToolFailure {
				consecutiveFailures++
				if consecutiveFailures >= 3 && !flaggedThisSession {
					sessionsWithFailureStreak++
					flaggedThisSession = true
				}
			} else {
				consecutiveFailures = 0
			}

			if e.Kind == types.EventPostTool && e.ToolName == "Read" {
				sawRead = true
			}
			if e.Kind == types.EventPostTool && e.ToolName == "Edit" && !sawRead {
				riskyEditCount++
				if !riskyThisSession {
					riskyEditSessions++
					riskyThisSession = true
				}
			}
		}
	}

	var out []DerivedInsight
	if sessionsWithFailureStreak >= 2 {
		out = append(out, DerivedInsight{
			Text:     fmt.Sprintf("%d sessions in this batch hit 3 or more consecutive tool failures", sessionsWithFailureStreak),
			Source:   "pipeline:session_workflows",
			Category: types.CategoryMetaLearning,
		})
	}
	if riskyEditSessions >= 2 {
		out = append(out, DerivedInsight{
			Text:     fmt.Sprintf("%d sessions edited a file before ever reading it (%d risky edits total)", riskyEditSessions, riskyEditCount),
			Source:   "pipeline:session_workflows",
			Category: types.CategoryMetaLearning,
		})
	}
	return out
}
