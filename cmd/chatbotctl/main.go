// Command chatbotctl drives the ETL pipeline and the chat-response
// pipeline from the command line. There is no HTTP listener here —
// per spec, the external interface for this system is out of scope,
// so the CLI exposes the same operations a service layer would call.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aptrag/chatbot/config"
)

var rootCmd = &cobra.Command{
	Use:           "chatbotctl",
	Short:         "Operate the personality-profile ETL and chat pipelines",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatbotctl:", err)
		os.Exit(1)
	}
}

// loadApp is the shared entry point every subcommand uses to build its
// dependency graph from the environment. Each subcommand is responsible
// for closing the returned app.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newApp(cmd.Context(), cfg)
}

func init() {
	rootCmd.AddCommand(etlCmd, chatCmd, migrateCmd)
}
