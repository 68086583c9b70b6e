// Package qualitygate implements the Quality Gate / Noise Filter (C5,
// §4.5) and the Validate-and-Store write path (C6, §4.6): the sole
// legal way a candidate insight reaches the cognitive store.
package qualitygate

import (
	"regexp"
	"strings"
)

// noiseRule is one named, pure predicate in the ordered noise-filter
// rule list. Grounded on the teacher's metacognition bias detectors
// (internal/metacognition/bias_detection.go), which structure pattern
// detection the same way: a name plus a slice of indicator strings,
// composed into small named functions rather than one large regex.
type noiseRule struct {
	name  string
	check func(line string) bool
}

var markdownHeader = regexp.MustCompile(`^#{1,6}\s`)
var httpErrorCode = regexp.MustCompile(`\b[45]\d{2}\b`)
var jsonBlob = regexp.MustCompile(`^\s*[\{\[].*[\}\]]\s*$`)
var filePathLike = regexp.MustCompile(`^(/[\w.\-]+)+/?$|^[A-Za-z]:\\`)
var toolErrorRef = regexp.MustCompile(`tool_\d+_error`)
var toolSequence = regexp.MustCompile(`([A-Z][A-Za-z]*\s*->\s*){1,}[A-Z][A-Za-z]*`)
var truncatedPrefer = regexp.MustCompile(`(?i)^prefer\s+'?x\.\.\.`)
var labelPrefix = regexp.MustCompile(`(?i)^(constraint|note|todo|fixme)\s*:\s*that\s+the\b`)

var conversationalFillers = []string{
	"um,", "uh,", "well,", "so basically", "like i said", "i mean,",
	"you know,", "anyway,", "okay so",
}

var toolTelemetryMarkers = []string{
	"tool_use_id", "tool_result", "function_call", "stdout:", "stderr:",
	"exit code", "exit status", "traceback (most recent call last)",
}

var heavyUsageMarkers = []string{
	"tokens used", "cache_read_input_tokens", "usage: {", "rate limit",
	"context window", "tokens remaining",
}

var promptInjectionMarkers = []string{
	"quality_test", "ignore previous instructions", "disregard the above",
}

var chipIntelligenceWrappers = []string{
	"<thinking>", "</thinking>", "<result>", "</result>", "[chip]",
}

// noiseRules is the ordered list applied by IsNoise. Order is
// deterministic but does not affect the outcome (each rule is an
// independent reject), only which reason is reported first.
var noiseRules = []noiseRule{
	{"too-short", func(l string) bool { return len(strings.TrimSpace(l)) < 20 }},
	{"multi-line", func(l string) bool { return strings.Contains(l, "\n") }},
	{"indented-code", func(l string) bool { return strings.HasPrefix(l, "    ") || strings.HasPrefix(l, "\t") }},
	{"markdown-header", func(l string) bool { return markdownHeader.MatchString(l) }},
	{"json-blob", func(l string) bool { return jsonBlob.MatchString(strings.TrimSpace(l)) }},
	{"file-path", func(l string) bool { return filePathLike.MatchString(strings.TrimSpace(l)) }},
	{"http-error-code", func(l string) bool { return httpErrorCode.MatchString(l) }},
	{"tool-error-ref", func(l string) bool { return toolErrorRef.MatchString(l) }},
	{"tool-sequence", func(l string) bool { return toolSequence.MatchString(l) }},
	{"truncated-prefer", func(l string) bool { return truncatedPrefer.MatchString(strings.TrimSpace(l)) }},
	{"label-conversational-prefix", func(l string) bool { return labelPrefix.MatchString(strings.TrimSpace(l)) }},
	{"conversational-filler", containsAny(conversationalFillers)},
	{"tool-telemetry", containsAny(toolTelemetryMarkers)},
	{"heavy-usage-summary", containsAny(heavyUsageMarkers)},
	{"prompt-injection-marker", containsAny(promptInjectionMarkers)},
	{"chip-intelligence-wrapper", containsAny(chipIntelligenceWrappers)},
}

func containsAny(markers []string) func(string) bool {
	return func(line string) bool {
		lower := strings.ToLower(line)
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return true
			}
		}
		return false
	}
}

// IsNoise runs the ordered rule list against text, returning the name
// of the first rule that fired (empty if none did).
func IsNoise(text string) (bool, string) {
	for _, rule := range noiseRules {
		if rule.check(text) {
			return true, rule.name
		}
	}
	return false, ""
}

// needsWorkPrefixes holds template substitutions applied when a
// candidate almost passes but is refinable (§4.5's NeedsWork verdict):
// stripping transcript prefixes and normalizing "recovered X%" variants.
var needsWorkPrefixes = []string{
	"assistant:", "user:", "human:", "ai:", "system:",
}

var recoveredPercentPattern = regexp.MustCompile(`(?i)recovered\s+(\d+(\.\d+)?)\s*%`)

// refine attempts the template substitutions that turn a borderline
// candidate into passable text. Returns the refined text and whether
// any substitution actually changed it.
func refine(text string) (string, bool) {
	out := strings.TrimSpace(text)
	changed := false

	lower := strings.ToLower(out)
	for _, p := range needsWorkPrefixes {
		if strings.HasPrefix(lower, p) {
			out = strings.TrimSpace(out[len(p):])
			lower = strings.ToLower(out)
			changed = true
		}
	}

	if recoveredPercentPattern.MatchString(out) {
		out = recoveredPercentPattern.ReplaceAllString(out, "recovered partially")
		changed = true
	}

	return out, changed
}

// isBorderline reports whether text is short/weak enough that it's
// worth attempting refine() rather than outright rejecting it.
func isBorderline(text string) bool {
	trimmed := strings.TrimSpace(text)
	return len(trimmed) >= 12 && len(trimmed) < 30
}
