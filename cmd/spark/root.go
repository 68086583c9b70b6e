package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"unified-thinking/internal/bridge"
)

var (
	homeDir      string
	voyageAPIKey string

	// exitCode is 0 on success, 2 on a usage error (a flag-parsing error
	// or one built by newUsageError), and 1 for any other error or when a
	// command ran fine but found a degraded system (e.g. `status`
	// reporting a FAIL layer, which sets it directly).
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "spark",
	Short: "Spark cognitive observatory",
	Long: `spark watches an AI coding agent's session stream, distills
insights, validates them against contradiction and duplication, and
exposes the survivors that clear a reliability bar to consumers.

Run with no subcommand to start the background worker loops. Run with
a subcommand for a one-shot operation against the same on-disk state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Spark home directory (default: $SPARK_HOME or ~/.spark)")
	rootCmd.PersistentFlags().StringVar(&voyageAPIKey, "voyage-api-key", os.Getenv("VOYAGE_API_KEY"), "Voyage AI API key for real embeddings (default: mock embedder)")
	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err: err}
	})
}

// Execute runs the CLI, translating usage errors (cobra's flag-parsing
// errors and newUsageError results) into exit code 2 (misuse) per §6,
// and any other returned error into exit code 1 (the command ran but
// something failed).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "spark:", err)
		if isUsageError(err) {
			exitCode = 2
		} else if exitCode == 0 {
			exitCode = 1
		}
	}
}

func isUsageError(err error) bool {
	_, ok := err.(*usageError)
	return ok
}

// usageError marks an error as misuse (bad flags/args) rather than a
// runtime failure, so Execute can map it to exit code 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newUsageError(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func bridgeConfig() bridge.Config {
	return bridge.Config{
		HomeDir:      homeDir,
		VoyageAPIKey: voyageAPIKey,
	}
}
