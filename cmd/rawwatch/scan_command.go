package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rawwatch/internal/daemon"
	"rawwatch/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Convert every RAW file under the input directory once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
				return fmt.Errorf("create output directory %s: %w", cfg.Paths.OutputDir, err)
			}

			var opts []daemon.Option
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				opts = append(opts, daemon.WithRecorder(store))
			}

			pipeline := daemon.NewPipeline(cfg, logger, opts...)
			summary, err := pipeline.Scanner.Scan(cmd.Context(), cfg.Paths.InputDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printScanSummary(out, summary, shouldColorize(out))
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d files failed to convert", summary.Failed, summary.Discovered)
			}
			return nil
		},
	}
}

func printScanSummary(out io.Writer, summary scan.Summary, colorize bool) {
	if summary.Discovered == 0 {
		fmt.Fprintln(out, "No new files to convert")
		return
	}
	line := fmt.Sprintf("%d discovered, %d succeeded, %d failed", summary.Discovered, summary.Converted, summary.Failed)
	attr := color.FgGreen
	if summary.Failed > 0 {
		attr = color.FgYellow
	}
	fmt.Fprintln(out, paint(attr, line, colorize))
	if summary.Skipped > 0 {
		fmt.Fprintf(out, "%d already converted\n", summary.Skipped)
	}
	if summary.Interrupted {
		fmt.Fprintln(out, paint(color.FgYellow, "Scan interrupted; remaining files will be picked up next time", colorize))
	}
}
