package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"unified-thinking/internal/bridge"
	"unified-thinking/internal/semindex"
)

func init() {
	rootCmd.AddCommand(semanticReindexCmd)
}

var semanticReindexCmd = &cobra.Command{
	Use:   "semantic-reindex",
	Short: "Rebuild the semantic index and memory graph from the cognitive store",
	RunE:  runSemanticReindex,
}

func runSemanticReindex(cmd *cobra.Command, args []string) error {
	b, err := bridge.New(bridgeConfig(), nil)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := context.Background()
	insights := b.Store.All()
	for _, i := range insights {
		mem := semindex.Memory{
			ID:        i.Key,
			Content:   i.Text,
			Category:  string(i.Category),
			CreatedAt: i.CreatedAt,
			Source:    i.Source,
		}
		if err := b.Index.IndexMemory(ctx, mem); err != nil {
			fmt.Printf("reindex: %s failed: %v\n", i.Key, err)
			continue
		}
	}
	fmt.Printf("semantic-reindex: reindexed %d insights\n", len(insights))
	return nil
}
