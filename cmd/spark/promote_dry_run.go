package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"unified-thinking/internal/bridge"
)

func init() {
	rootCmd.AddCommand(promoteDryRunCmd)
}

var promoteDryRunCmd = &cobra.Command{
	Use:   "promote-dry-run",
	Short: "Preview what the next promotion cycle would promote, without writing anything",
	RunE:  runPromoteDryRun,
}

func runPromoteDryRun(cmd *cobra.Command, args []string) error {
	b, err := bridge.New(bridgeConfig(), nil)
	if err != nil {
		return err
	}
	defer b.Close()

	selected, skipped := b.Promotion.Preview()
	for _, i := range selected {
		fmt.Printf("would promote  %-12s %-12s %s\n", i.Key, i.Category, i.Text)
	}
	fmt.Printf("%d would be promoted, %d skipped (budget or variant dedup)\n", len(selected), skipped)
	return nil
}
