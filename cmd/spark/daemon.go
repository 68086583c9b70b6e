package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"unified-thinking/internal/bridge"
)

// runDaemon is the root command's default action: build every component
// and run the background loops until SIGINT/SIGTERM, mirroring the
// teacher's cmd/server/main.go stage-by-stage construction log.
func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("spark: starting cognitive observatory")

	b, err := bridge.New(bridgeConfig(), nil)
	if err != nil {
		return err
	}
	defer b.Close()
	log.Println("spark: bridge wired (queue, cogstore, semindex, pipeline, predictloop, promotion, evolution)")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Println("spark: running bridge worker, prediction worker, promotion, evolution, and reload-watcher loops")
	b.Run(ctx)
	return nil
}
