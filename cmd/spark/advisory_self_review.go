package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"unified-thinking/internal/bridge"
	"unified-thinking/internal/evolution"
	"unified-thinking/internal/types"
)

func init() {
	rootCmd.AddCommand(advisorySelfReviewCmd)
}

var advisorySelfReviewCmd = &cobra.Command{
	Use:   "advisory-self-review",
	Short: "Self-assess the most recently active session's insight corpus",
	RunE:  runAdvisorySelfReview,
}

// runAdvisorySelfReview finds the most recently exposed-to session and
// prints its self-evaluation (quality/completeness/coherence plus
// strengths, weaknesses, and improvement suggestions). Neither spec.md
// nor its expansion define this command's target session beyond naming
// it in the CLI surface, so "most recent" is this command's own choice,
// recorded as an Open Question decision.
func runAdvisorySelfReview(cmd *cobra.Command, args []string) error {
	b, err := bridge.New(bridgeConfig(), nil)
	if err != nil {
		return err
	}
	defer b.Close()

	since := time.Now().Add(-7 * 24 * time.Hour)
	exposures := b.Store.Exposures(since)
	if len(exposures) == 0 {
		return newUsageError("no sessions exposed to any insight in the last 7 days")
	}

	latest := exposures[0]
	for _, e := range exposures {
		if e.Timestamp.After(latest.Timestamp) {
			latest = e
		}
	}

	report := b.Reporter.Generate(latest.SessionID)

	keys := map[string]bool{}
	for _, e := range exposures {
		if e.SessionID == latest.SessionID {
			keys[e.InsightKey] = true
		}
	}
	var sessionInsights []*types.Insight
	for key := range keys {
		if ins, ok := b.Store.Get(key); ok {
			sessionInsights = append(sessionInsights, ins)
		}
	}

	eval := evolution.GenerateSelfEvaluation(latest.SessionID, report, sessionInsights)

	fmt.Printf("session:     %s\n", eval.SessionID)
	fmt.Printf("quality:     %.2f\n", eval.QualityScore)
	fmt.Printf("completeness: %.2f\n", eval.CompletenessScore)
	fmt.Printf("coherence:   %.2f\n", eval.CoherenceScore)
	fmt.Println("strengths:")
	for _, s := range eval.Strengths {
		fmt.Printf("  - %s\n", s)
	}
	fmt.Println("weaknesses:")
	for _, w := range eval.Weaknesses {
		fmt.Printf("  - %s\n", w)
	}
	fmt.Println("improvement suggestions:")
	for _, s := range eval.ImprovementSuggestions {
		fmt.Printf("  - %s\n", s)
	}
	return nil
}
