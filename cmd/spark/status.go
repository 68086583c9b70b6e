package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"unified-thinking/internal/bridge"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the health of every layer, from Source to Mind",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	b, err := bridge.New(bridgeConfig(), nil)
	if err != nil {
		return err
	}
	defer b.Close()

	rows := b.Status()
	for _, r := range rows {
		fmt.Printf("%-11s %-5s %s\n", r.Layer, r.State, r.Detail)
	}
	if bridge.Critical(rows) {
		exitCode = 1
	}
	return nil
}
