// Command spark is the background cognitive observatory process and its
// companion CLI. Run with no subcommand it drives the bridge worker,
// prediction worker, promotion, evolution, and reload-watcher loops
// until terminated; run with a subcommand it performs a one-shot
// operation against the same on-disk state and exits.
//
// Grounded on the teacher's cmd/server/main.go for startup sequencing
// (construct, log each stage, run) and on the pack's agentops CLI for
// cobra command structure (root command plus one file per subcommand).
package main

import (
	"os"
)

func main() {
	Execute()
	os.Exit(exitCode)
}
