package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rawwatch/internal/daemon"
	"rawwatch/internal/logging"
	"rawwatch/internal/preflight"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Convert the backlog, then keep converting new RAW files until interrupted",
		Long: "Convert every RAW file already under the input directory, then watch the tree " +
			"and rescan whenever a RAW file is added. Send SIGHUP to force a rescan.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			for _, result := range preflight.Failed(preflight.RunAll(cfg)) {
				logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail),
					logging.String(logging.FieldErrorHint, "run rawwatch check for the full report"),
					logging.String(logging.FieldImpact, "conversions may fail until this is fixed"),
				)
			}

			store, err := ctx.openLedger()
			if err != nil {
				logging.WarnWithContext(logger, "conversion history unavailable", "ledger_open_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "delete the ledger database or set ledger.enabled = false"),
					logging.String(logging.FieldImpact, "conversions continue without history"),
				)
			}

			d, err := daemon.New(cfg, store, logger)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			go func() {
				for {
					select {
					case <-signalCtx.Done():
						return
					case <-hup:
						status := d.Status()
						logger.Info("rescan requested by SIGHUP",
							logging.String("state", status.State.String()),
							logging.Int64("scans", status.Scans),
						)
						d.Trigger()
					}
				}
			}()

			if err := d.Run(signalCtx); err != nil {
				return err
			}
			status := d.Status()
			logger.Info("watch stopped",
				logging.Int64("scans", status.Scans),
				logging.Int("last_converted", status.LastScan.Converted),
				logging.Int("last_failed", status.LastScan.Failed),
			)
			return nil
		},
	}
}
