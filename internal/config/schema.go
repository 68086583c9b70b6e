package config

// FieldType identifies the coercion/validation rule applied to a tuneable
// value (§4.2).
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeFloat
	TypeBool
)

// FieldSpec declares one tuneable's default, coercion type, and (for
// numeric fields) clamp bounds or (for string fields) an allowed set.
type FieldSpec struct {
	Type    FieldType
	Default interface{}
	Min     float64
	Max     float64
	HasMin  bool
	HasMax  bool
	Enum    []string
}

// Schema maps section name to key name to its FieldSpec. It is the
// compile-time constant described in §4.2: every key Spark resolves
// through the four-layer mechanism must appear here.
type Schema map[string]map[string]FieldSpec

// DefaultSchema is Spark's tuneables schema, covering the sections named
// in spec §6 (queue, prediction, validate_and_store, learning_bridge) plus
// the per-component thresholds described in §4.3-§4.11.
func DefaultSchema() Schema {
	return Schema{
		"queue": {
			"max_events": FieldSpec{Type: TypeInt, Default: 200000, Min: 1000, HasMin: true, Max: 5_000_000, HasMax: true},
			"max_bytes":  FieldSpec{Type: TypeInt, Default: 64 * 1024 * 1024, Min: 1 << 20, HasMin: true, Max: 1 << 31, HasMax: true},
		},
		"pipeline": {
			"base_interval_seconds": FieldSpec{Type: TypeInt, Default: 30, Min: 5, HasMin: true, Max: 300, HasMax: true},
			"min_batch_size":        FieldSpec{Type: TypeInt, Default: 50, Min: 1, HasMin: true, Max: 1000, HasMax: true},
			"max_batch_size":        FieldSpec{Type: TypeInt, Default: 1000, Min: 50, HasMin: true, Max: 10000, HasMax: true},
		},
		"prediction": {
			"auto_link":           FieldSpec{Type: TypeBool, Default: true},
			"auto_link_min_sim":   FieldSpec{Type: TypeFloat, Default: 0.6, Min: 0, HasMin: true, Max: 1, HasMax: true},
			"per_source_budget":   FieldSpec{Type: TypeInt, Default: 20, Min: 1, HasMin: true, Max: 500, HasMax: true},
			"match_threshold":     FieldSpec{Type: TypeFloat, Default: 0.55, Min: 0, HasMin: true, Max: 1, HasMax: true},
		},
		"validate_and_store": {
			"enabled": FieldSpec{Type: TypeBool, Default: true},
		},
		"learning_bridge": {
			"enabled": FieldSpec{Type: TypeBool, Default: true},
		},
		"contradiction": {
			"min_similarity": FieldSpec{Type: TypeFloat, Default: 0.55, Min: 0, HasMin: true, Max: 1, HasMax: true},
		},
		"promotion": {
			"reliability_min":  FieldSpec{Type: TypeFloat, Default: 0.7, Min: 0, HasMin: true, Max: 1, HasMax: true},
			"validations_min":  FieldSpec{Type: TypeInt, Default: 3, Min: 1, HasMin: true, Max: 100, HasMax: true},
			"confidence_min":   FieldSpec{Type: TypeFloat, Default: 0.9, Min: 0, HasMin: true, Max: 1, HasMax: true},
			"min_age_hours":    FieldSpec{Type: TypeFloat, Default: 2, Min: 0, HasMin: true, Max: 720, HasMax: true},
			"adapter_budget":   FieldSpec{Type: TypeInt, Default: 50, Min: 1, HasMin: true, Max: 5000, HasMax: true},
		},
		"evolution": {
			"promotion_threshold_floor": FieldSpec{Type: TypeFloat, Default: 0.4, Min: 0, HasMin: true, Max: 1, HasMax: true},
			"promotion_threshold_ceil":  FieldSpec{Type: TypeFloat, Default: 0.7, Min: 0, HasMin: true, Max: 1, HasMax: true},
			"nudge_step":                FieldSpec{Type: TypeFloat, Default: 0.05, Min: 0, HasMin: true, Max: 0.5, HasMax: true},
		},
		"semindex": {
			"lexical_weight": FieldSpec{Type: TypeFloat, Default: 0.6, Min: 0, HasMin: true, Max: 1, HasMax: true},
			"vector_weight":  FieldSpec{Type: TypeFloat, Default: 0.4, Min: 0, HasMin: true, Max: 1, HasMax: true},
			"mmr_lambda":     FieldSpec{Type: TypeFloat, Default: 0.5, Min: 0, HasMin: true, Max: 1, HasMax: true},
		},
		"logging": {
			"level":  FieldSpec{Type: TypeString, Default: "info", Enum: []string{"debug", "info", "warn", "error"}},
			"format": FieldSpec{Type: TypeString, Default: "text", Enum: []string{"text", "json"}},
		},
	}
}
