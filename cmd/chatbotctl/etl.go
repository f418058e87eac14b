package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	etlUserID string
	etlAnpSeq int64
	etlJobID  string
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Run or manage personality-profile ETL jobs",
}

var etlRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL pipeline for a single user's completed test",
	RunE: func(cmd *cobra.Command, args []string) error {
		if etlUserID == "" {
			return fmt.Errorf("--user is required")
		}
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		job, err := a.orchestrator.RunJob(cmd.Context(), etlUserID, etlAnpSeq)
		if err != nil {
			return fmt.Errorf("run job: %w", err)
		}
		fmt.Printf("job %s finished with status %s (%d documents, progress %d%%)\n",
			job.ID, job.Status, len(job.DocumentsCreated), job.Progress)

		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.orchestrator.DrainNotifications(drainCtx); err != nil {
			fmt.Printf("warning: admin notification still in flight at exit: %v\n", err)
		}
		return nil
	},
}

var etlCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a running ETL job",
	RunE: func(cmd *cobra.Command, args []string) error {
		if etlJobID == "" {
			return fmt.Errorf("--job-id is required")
		}
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.orchestrator.CancelJob(cmd.Context(), etlJobID); err != nil {
			return fmt.Errorf("cancel job: %w", err)
		}
		fmt.Printf("job %s cancelled\n", etlJobID)
		return nil
	},
}

func init() {
	etlRunCmd.Flags().StringVar(&etlUserID, "user", "", "user ID to process")
	etlRunCmd.Flags().Int64Var(&etlAnpSeq, "anp-seq", 0, "completed test sequence number")

	etlCancelCmd.Flags().StringVar(&etlJobID, "job-id", "", "job ID to cancel")

	etlCmd.AddCommand(etlRunCmd, etlCancelCmd)
}
