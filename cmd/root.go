package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/app"
	"github.com/alertdigest/alertdigest/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the slice of application services commands consume. An interface so
// tests can inject a stub.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() config.Config
}

// newApp is the application factory, a variable so tests can swap in a stub.
var newApp = func(cfgPath string, verbose bool) (App, error) {
	return app.NewApp(cfgPath, verbose)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alertdigest",
		Short: "Builds a summarized Markdown digest from alert-email article links.",
		Long: `alertdigest fetches the articles referenced by an alert email, normalizes
each page to clean text, summarizes it, and renders one Markdown digest.
Articles that resist every fetch tier are listed in the digest with the
reason they are missing instead of being silently dropped.`,

		// Runs after flag parsing and before the subcommand's RunE, so every
		// command finds a fully wired App in its context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cfgFile, verbose)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Ensures services shut down after the subcommand finishes.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches . and ./configs)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point. Cobra prints the failing command's error,
// so this only sets the exit status.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
