package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"basescan/internal/schedule"
)

func newScheduleCmd() *cobra.Command {
	var f scanFlags
	var spec string
	var runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the scan after every US market close until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			f.apply(cmd, a)
			if spec != "" {
				a.cfg.Schedule.Spec = spec
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			job := func(ctx context.Context) error {
				// The symbol file is re-read on every run so edits apply
				// without a restart.
				stocks, err := f.stocks()
				if err != nil {
					return fmt.Errorf("loading symbols: %w", err)
				}
				a.provider.Reset()
				res, files, err := a.runPipeline(ctx, stocks, st, false)
				if err != nil {
					return err
				}
				a.logger.Info().
					Str("run_id", res.RunID).
					Str("full", files.Full).
					Str("buyable", files.Buyable).
					Int("buyable_count", len(res.BuyableRows())).
					Msg("Reports written")
				return nil
			}

			sched, err := schedule.New(ctx, a.cfg.Schedule.Spec, a.cfg.Schedule.Timezone, job, a.logger)
			if err != nil {
				return err
			}
			if runNow {
				sched.Trigger()
			}
			sched.Start()
			fmt.Printf("Scheduled scans at %q (%s). Next run: %s. Press Ctrl+C to stop.\n",
				a.cfg.Schedule.Spec, a.cfg.Schedule.Timezone, sched.Next().Format("Mon 2006-01-02 15:04 MST"))

			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&spec, "cron", "", "cron spec with seconds field (default from config)")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one scan immediately if today is a trading day")
	return cmd
}
