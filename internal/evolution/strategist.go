package evolution

import (
	"time"

	"unified-thinking/internal/reinforcement"
)

// TuneableRegistry is the slice of C2 the strategist reads and nudges.
type TuneableRegistry interface {
	GetFloat(section, key string) float64
	SetRuntimeOverride(section, key string, value interface{}) error
}

// ManagedTuneable names one float tuneable the strategist is allowed to
// adjust, plus the safety band it must never cross. §4.11's named
// example, promotion_threshold within [0.4, 0.7] in steps of 0.05, maps
// onto config's own evolution.promotion_threshold_floor/ceil/nudge_step
// schema fields (internal/config/schema.go) rather than duplicating the
// bounds here.
type ManagedTuneable struct {
	Section string
	Key     string
	Floor   float64
	Ceil    float64
	Step    float64
}

// Adjustment is one logged nudge, persisted so an operator can see why a
// tuneable moved (§4.11: "each adjustment is logged with reason and
// trend context").
type Adjustment struct {
	Section string    `json:"section"`
	Key     string    `json:"key"`
	Old     float64   `json:"old"`
	New     float64   `json:"new"`
	Reason  string    `json:"reason"`
	Metric  string    `json:"metric"`
	Slope   float64   `json:"slope"`
	At      time.Time `json:"at"`
}

const (
	armIncrease = "increase"
	armDecrease = "decrease"
)

// LearningStrategist nudges ManagedTuneables up or down by Step each run,
// choosing a direction per tuneable with Thompson Sampling over two
// arms (increase/decrease) and rewarding whichever arm was chosen last
// run based on whether the tracked quality metric improved since.
// Grounded on internal/reinforcement.ThompsonSelector, reserved for this
// exact role rather than C8's build-phase budgeting (see DESIGN.md).
type LearningStrategist struct {
	registry    TuneableRegistry
	tuneables   []ManagedTuneable
	selector    *reinforcement.ThompsonSelector
	lastArm     map[string]string  // tuneable key -> arm chosen last run
	lastQuality map[string]float64 // tuneable key -> quality score observed before that run
	log         *AdjustmentLog
}

// NewLearningStrategist builds a strategist managing the given tuneables.
func NewLearningStrategist(registry TuneableRegistry, tuneables []ManagedTuneable, log *AdjustmentLog) *LearningStrategist {
	selector := reinforcement.NewThompsonSelectorWithTime()
	for _, t := range tuneables {
		for _, arm := range []string{armIncrease, armDecrease} {
			selector.AddStrategy(&reinforcement.Strategy{
				ID:       armID(t, arm),
				Name:     arm,
				Mode:     "tuneable_nudge",
				IsActive: true,
			})
		}
	}
	return &LearningStrategist{
		registry:    registry,
		tuneables:   tuneables,
		selector:    selector,
		lastArm:     map[string]string{},
		lastQuality: map[string]float64{},
		log:         log,
	}
}

func armID(t ManagedTuneable, arm string) string {
	return t.Section + "." + t.Key + ":" + arm
}

// RunCycle rewards the previous cycle's choice (if any) against
// currentQuality, then selects and applies this cycle's nudge for every
// managed tuneable. trendMetric/trendSlope are carried through only for
// the adjustment log's "trend context".
func (s *LearningStrategist) RunCycle(currentQuality float64, trendMetric string, trendSlope float64) []Adjustment {
	var applied []Adjustment

	for _, t := range s.tuneables {
		key := t.Section + "." + t.Key

		if arm, ok := s.lastArm[key]; ok {
			improved := currentQuality > s.lastQuality[key]
			_ = s.selector.RecordOutcome(armID(t, arm), improved)
		}
		s.lastQuality[key] = currentQuality

		strategy, err := s.selector.SelectStrategy(reinforcement.ProblemContext{Type: "tuneable_nudge"})
		arm := armIncrease
		if err == nil && strategy != nil && strategy.Name == armDecrease {
			arm = armDecrease
		}
		s.lastArm[key] = arm

		old := s.registry.GetFloat(t.Section, t.Key)
		step := t.Step
		if step <= 0 {
			step = 0.05
		}
		next := old + step
		reason := "increase arm selected, raising threshold so fewer candidates clear it"
		if arm == armDecrease {
			next = old - step
			reason = "decrease arm selected, lowering threshold so more candidates clear it"
		}
		next = clamp(next, t.Floor, t.Ceil)
		if next == old {
			continue
		}

		if err := s.registry.SetRuntimeOverride(t.Section, t.Key, next); err != nil {
			continue
		}

		adj := Adjustment{
			Section: t.Section,
			Key:     t.Key,
			Old:     old,
			New:     next,
			Reason:  reason,
			Metric:  trendMetric,
			Slope:   trendSlope,
			At:      time.Now(),
		}
		if s.log != nil {
			_ = s.log.Append(&adj)
		}
		applied = append(applied, adj)
	}

	return applied
}
