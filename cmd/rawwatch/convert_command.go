package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rawwatch/internal/config"
	"rawwatch/internal/convert"
	"rawwatch/internal/daemon"
	"rawwatch/internal/rawfile"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <raw-file>...",
		Short: "Convert specific RAW files into the output directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				path, err := config.ExpandPath(strings.TrimSpace(arg))
				if err != nil {
					return err
				}
				if !rawfile.IsRaw(path) {
					return fmt.Errorf("%s is not a RAW file (supported: %s)", arg, strings.Join(rawfile.Extensions(), ", "))
				}
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("stat %s: %w", arg, err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory; use rawwatch scan --input", arg)
				}
				paths = append(paths, path)
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

			rows := make([][]string, 0, len(paths))
			failed := 0
			for _, path := range paths {
				outcome := pipeline.Converter.Convert(cmd.Context(), path)
				detail := outcome.OutputPath
				if outcome.Status == convert.StatusFailed {
					failed++
					detail = outcome.Err.Error()
				}
				rows = append(rows, []string{path, titleCase(outcome.Status.String()), detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Raw File", "Status", "Result"}, rows, nil))
			if failed > 0 {
				return errors.New(pluralize(failed, "file") + " failed to convert")
			}
			return nil
		},
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
