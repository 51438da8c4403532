package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/finsift/finsift/internal/config"
	"github.com/finsift/finsift/internal/model"
	"github.com/finsift/finsift/internal/service"
)

func suggestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Review stored transaction suggestions",
	}

	cmd.AddCommand(suggestionsListCmd())
	cmd.AddCommand(suggestionsStatusCmd("approve", model.StatusApproved))
	cmd.AddCommand(suggestionsStatusCmd("reject", model.StatusRejected))

	return cmd
}

func suggestionsListCmd() *cobra.Command {
	var (
		operationID string
		status      string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List suggestions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			suggestions, err := store.ListSuggestions(ctx, service.SuggestionFilter{
				OperationID: operationID,
				Status:      model.SuggestionStatus(status),
				Limit:       limit,
			})
			if err != nil {
				return err
			}

			if len(suggestions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No suggestions found.")
				return nil
			}

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			dupStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
			fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("Suggestions"))
			for _, s := range suggestions {
				line := fmt.Sprintf("%s  %s  %-7s  %8.2f %s  conf=%d  [%s]  %s",
					s.ID, s.Date.Format("2006-01-02"), s.Type, s.Amount, s.Currency,
					s.Confidence, s.DetectionMethod, s.Status)
				if s.IsDuplicate {
					line += dupStyle.Render(fmt.Sprintf("  duplicate of %s (%s)", s.RelatedSuggestionID, s.DuplicateReason))
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&operationID, "operation", "", "filter by operation")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, approved, rejected)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of suggestions to show")

	return cmd
}

func suggestionsStatusCmd(verb string, status model.SuggestionStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " [id]",
		Short: verb + " a suggestion",
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

			if err := store.UpdateSuggestionStatus(ctx, args[0], status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Suggestion %s is now %s.\n", args[0], status)
			return nil
		},
	}
}
