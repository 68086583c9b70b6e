package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"unified-thinking/internal/bridge"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one bridge-worker cycle and one prediction cycle on demand",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	b, err := bridge.New(bridgeConfig(), nil)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := context.Background()

	result, err := b.Pipeline.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("pipeline cycle: %w", err)
	}
	fmt.Printf("pipeline: read %d events, stored %d insights, next interval %s\n", result.EventsRead, result.InsightsStored, result.NextInterval)

	predictions, err := b.Predictions.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("prediction cycle: %w", err)
	}
	fmt.Printf("predictions: built %d, matched %d, surprises %d\n", predictions.PredictionsBuilt, predictions.Matched, predictions.Surprises)
	return nil
}
