package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/finsift/finsift/internal/model"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/finsift/finsift/internal/config"
)

func processCmd() *cobra.Command {
	var (
		operationID string
		opName      string
		client      string
	)

	cmd := &cobra.Command{
		Use:   "process [files...]",
		Short: "Run documents through the extraction pipeline",
		Long: `Process one or more financial documents (PDFs, images). Each document is
converted to text, run through the AI and rule-based extraction tiers, checked
against previously stored suggestions for duplicates, and persisted. Documents
no tier can read are queued for manual review instead.`,
		Args: cobra.MinimumNArgs(1),
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

			pipeline, err := buildPipeline(cfg, store)
			if err != nil {
				return err
			}

			opCtx := model.OperationContext{
				OperationID: operationID,
				Name:        opName,
				Client:      client,
			}

			bar := progressbar.NewOptions(len(args),
				progressbar.OptionSetWriter(cmd.OutOrStdout()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Processing documents...[reset]"),
			)

			start := time.Now()
			var stored, duplicates, reviewed int
			for _, path := range args {
				data, readErr := readAttachment(path)
				if readErr != nil {
					return readErr
				}

				suggestions, procErr := pipeline.ProcessAttachment(ctx, data, filepath.Base(path), opCtx)
				if procErr != nil {
					return procErr
				}
				if len(suggestions) == 0 {
					reviewed++
				}
				for _, s := range suggestions {
					if s.IsDuplicate {
						duplicates++
					} else {
						stored++
					}
				}
				_ = bar.Add(1)
			}
			fmt.Fprintln(cmd.OutOrStdout())

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("Processing complete"))
			fmt.Fprintf(cmd.OutOrStdout(), "  • Documents processed: %d\n", len(args))
			fmt.Fprintf(cmd.OutOrStdout(), "  • New suggestions: %d\n", stored)
			fmt.Fprintf(cmd.OutOrStdout(), "  • Flagged duplicates: %d\n", duplicates)
			fmt.Fprintf(cmd.OutOrStdout(), "  • Sent to manual review: %d\n", reviewed)
			fmt.Fprintf(cmd.OutOrStdout(), "  • Time taken: %s\n", time.Since(start).Round(time.Second))

			return nil
		},
	}

	cmd.Flags().StringVar(&operationID, "operation", "", "operation these documents belong to (required)")
	cmd.Flags().StringVar(&opName, "name", "", "human-readable operation name, given to the AI tier as context")
	cmd.Flags().StringVar(&client, "client", "", "client name, given to the AI tier as context")
	_ = cmd.MarkFlagRequired("operation")

	return cmd
}
