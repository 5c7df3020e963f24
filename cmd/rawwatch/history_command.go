package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rawwatch/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var status string
	var scanID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded conversion outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			status = strings.ToLower(strings.TrimSpace(status))
			switch status {
			case "", "converted", "skipped", "failed":
			default:
				return fmt.Errorf("invalid --status %q (want converted, skipped, or failed)", status)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), ledger.Filter{Status: status, ScanID: scanID, Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No conversions recorded")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				detail := e.OutputPath
				if e.ErrorMessage != "" {
					detail = e.ErrorMessage
				}
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.RecordedAt.Local().Format("2006-01-02 15:04:05"),
					titleCase(e.Status),
					displayPath(cfg.Paths.InputDir, e.RawPath),
					detail,
					formatDuration(e.Duration),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Recorded", "Status", "Raw File", "Result", "Duration"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))

			totals, err := store.Totals(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Totals: %d converted, %d skipped, %d failed\n", totals.Converted, totals.Skipped, totals.Failed)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show (0 for all)")
	cmd.Flags().StringVar(&status, "status", "", "Only show entries with this status")
	cmd.Flags().StringVar(&scanID, "scan", "", "Only show entries from this scan id")
	cmd.AddCommand(newHistoryLastCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryLastCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "last <raw-file>",
		Short: "Show the most recent outcome for one RAW file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.LastForPath(cmd.Context(), rawPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if entry == nil {
				fmt.Fprintf(out, "No conversions recorded for %s\n", rawPath)
				return nil
			}
			fmt.Fprintf(out, "%s %s (%s)\n", titleCase(entry.Status), rawPath, entry.RecordedAt.Local().Format("2006-01-02 15:04:05"))
			if entry.OutputPath != "" {
				fmt.Fprintf(out, "  Output: %s\n", entry.OutputPath)
			}
			if entry.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:  %s\n", entry.ErrorMessage)
			}
			if entry.ProfileVersion != "" {
				fmt.Fprintf(out, "  Profile: %s\n", entry.ProfileVersion)
			}
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history entries older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			noun := "entries"
			if removed == 1 {
				noun = "entry"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d history %s\n", removed, noun)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove entries recorded before now minus this duration")
	return cmd
}

func openHistory(ctx *commandContext) (*ledger.Store, error) {
	store, err := ctx.openLedger()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("conversion history is disabled (ledger.enabled = false)")
	}
	return store, nil
}

var titleCaser = cases.Title(language.Und)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(100 * time.Millisecond).String()
}
