// Package cli provides the command-line interface for keepsake.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/keepsake-bot/keepsake/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	cfg      config.Config
	logger   *slog.Logger
	logClose func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "keepsake",
	Short: "WhatsApp capture bot",
	Long: `Keepsake is a WhatsApp bot that keeps what you send it. Forward a photo
of a receipt, a document or a quick note and it stores the content as a
searchable record; ask a question and it answers from what you saved.

The serve command runs the Twilio webhook, the worker command runs the
background job processors. Both talk through Redis and SurrealDB.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		cfg = config.Load()
		logger, logClose = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logClose != nil {
			_ = logClose()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the keepsake version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("keepsake %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(versionCmd)
}
