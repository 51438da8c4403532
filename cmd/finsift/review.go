package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/finsift/finsift/internal/config"
)

func reviewCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Show documents queued for manual review",
		Long: `Documents that no extraction tier could read end up in the manual review
queue instead of being dropped. This lists them, oldest first.`,
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

			items, err := store.ListReviewItems(ctx, limit)
			if err != nil {
				return err
			}

			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Review queue is empty.")
				return nil
			}

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
			fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("Manual review queue"))
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-30s  %s  operation=%s\n",
					item.CreatedAt.Format("2006-01-02 15:04"),
					item.FileName, shortHash(item.FileHash), item.Context)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of items to show")

	return cmd
}

// shortHash abbreviates a content hash for display. Hashes from other sinks
// may be shorter than the usual hex digest.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
