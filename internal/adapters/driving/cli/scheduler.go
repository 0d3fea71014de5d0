package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run pipelines on their cron schedules",
	Long: `The scheduler reads a pipelines document describing recurring
source-to-destination replications and executes each enabled pipeline when
its cron schedule is due. Run times and results persist across restarts.`,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Make a single pass over the pipelines",
	Long: `Executes every enabled pipeline whose schedule is due, then exits.
Suitable for driving from cron or a systemd timer.`,
	RunE: runSchedulerOnce,
}

var schedulerWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run passes continuously, reloading the pipelines document on change",
	RunE:  runSchedulerWatch,
}

var schedulerHistoryCmd = &cobra.Command{
	Use:   "history <pipeline-id>",
	Short: "Show recent results for a pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerHistory,
}

var (
	schedulerPipelines    string
	schedulerHistoryLimit int
)

func init() {
	schedulerCmd.PersistentFlags().StringVar(&schedulerPipelines, "pipelines", "",
		"pipelines document path")
	schedulerHistoryCmd.Flags().IntVarP(&schedulerHistoryLimit, "limit", "n", 10,
		"number of results to show")
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerWatchCmd)
	schedulerCmd.AddCommand(schedulerHistoryCmd)
	rootCmd.AddCommand(schedulerCmd)
}

// buildScheduler constructs a scheduler for the configured pipelines
// document, falling back to the runtime configuration for its location.
func buildScheduler() (driving.Scheduler, error) {
	if schedulerFactory == nil {
		return nil, errors.New("scheduler not configured")
	}

	cfg := domain.DefaultSchedulerConfig()
	cfg.PipelinesPath = fallback(schedulerPipelines, runtimeConfig, "scheduler.pipelines")
	if runtimeConfig != nil {
		if d := runtimeConfig.GetDuration("scheduler.poll_interval"); d > 0 {
			cfg.PollInterval = d
		}
		if n := runtimeConfig.GetInt("scheduler.keep_history"); n > 0 {
			cfg.KeepHistory = n
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return schedulerFactory(cfg), nil
}

func runSchedulerOnce(cmd *cobra.Command, _ []string) error {
	sched, err := buildScheduler()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := sched.RunOnce(ctx); err != nil {
		return fmt.Errorf("scheduler pass: %w", err)
	}
	cmd.Println("Scheduler pass complete.")
	return nil
}

func runSchedulerWatch(cmd *cobra.Command, _ []string) error {
	sched, err := buildScheduler()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	if err := sched.Start(ctx); err != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

func runSchedulerHistory(cmd *cobra.Command, args []string) error {
	sched, err := buildScheduler()
	if err != nil {
		return err
	}

	runs, err := sched.History(cmd.Context(), args[0], schedulerHistoryLimit)
	if err != nil {
		return fmt.Errorf("scheduler history: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	for i := range runs {
		r := &runs[i]
		status := "ok"
		if !r.Success {
			status = "failed: " + r.Error
		}
		cmd.Printf("%s  %d records  %s\n",
			r.StartedAt.UTC().Format("2006-01-02 15:04:05"), r.Records, status)
	}
	return nil
}
