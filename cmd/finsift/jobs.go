package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/finsift/finsift/internal/config"
	"github.com/finsift/finsift/internal/model"
)

func jobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs [message-id]",
		Short: "Show attachment download jobs for a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			jobs, err := store.GetJobsByMessage(ctx, args[0])
			if err != nil {
				return err
			}

			if len(jobs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No jobs recorded for message %s.\n", args[0])
				return nil
			}

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
			fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("Attachment jobs"))
			for _, job := range jobs {
				line := fmt.Sprintf("%-20s  %-8s  %-11s  retries=%d",
					job.AttachmentID, job.Priority, job.Status, job.RetryCount)
				if job.Status == model.JobFailed && job.LastError != "" {
					line += failStyle.Render("  " + job.LastError)
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
