package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aptrag/chatbot/config"
	"github.com/aptrag/chatbot/docstore"
	"github.com/aptrag/chatbot/jobstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations for the job and document stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := jobstore.Migrate(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate job store: %w", err)
		}
		if err := docstore.Migrate(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate document store: %w", err)
		}
		fmt.Println("migrations applied")
		return nil
	},
}
