package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jjenkins/regwatch/internal/logger"
	"github.com/jjenkins/regwatch/internal/service"
)

var (
	scheduleRunNow  bool
	scheduleTimeout time.Duration
	scheduleTZ      string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run reports on a cron schedule",
	Long: `Schedule runs a report for every agency in schedule.agencies on the cron
expression in schedule.cron (REGWATCH_SCHEDULE), weekly on Monday 07:00 by
default. Each run is summarized when ANTHROPIC_API_KEY is set, emailed when SMTP
is configured and saved when DATABASE_URL is set.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "Run once immediately before waiting for the schedule")
	scheduleCmd.Flags().DurationVar(&scheduleTimeout, "timeout", 10*time.Minute, "Timeout for a single scheduled run")
	scheduleCmd.Flags().StringVar(&scheduleTZ, "timezone", "UTC", "Time zone the cron expression is evaluated in")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{persist: cfg.Database.URL != ""})
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := time.LoadLocation(scheduleTZ)
	if err != nil {
		appLogger.Warn("Invalid timezone, using UTC", logger.String("timezone", scheduleTZ), logger.Error(err))
		loc = time.UTC
	}

	job := func() { runScheduledReports(ctx, a) }

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.Schedule.Cron, job); err != nil {
		return err
	}

	if scheduleRunNow {
		job()
	}

	c.Start()
	appLogger.Info("Scheduler started",
		logger.String("schedule", cfg.Schedule.Cron),
		logger.String("timezone", loc.String()),
		logger.Strings("agencies", cfg.Schedule.Agencies))

	<-ctx.Done()
	appLogger.Info("Stopping scheduler")
	<-c.Stop().Done()
	return nil
}

// runScheduledReports generates, delivers and saves one report per scheduled agency
func runScheduledReports(parent context.Context, a *app) {
	ctx, cancel := context.WithTimeout(parent, scheduleTimeout)
	defer cancel()

	opts := deliverOptions{
		summarize: cfg.Summarizer.APIKey != "",
		email:     a.notifier.Configured(),
		maxListed: cfg.Report.MaxListed,
	}

	for _, agency := range cfg.Schedule.Agencies {
		start := time.Now()
		log := appLogger.With(logger.String("agency", agency))

		report, err := a.reporter.Run(ctx, agency, cfg.Report.Days, time.Now())
		if err != nil {
			log.Error("Scheduled report failed", logger.Error(err))
			continue
		}

		text, err := a.deliver(ctx, report, opts)
		if err != nil && !errors.Is(err, service.ErrNotConfigured) {
			log.Error("Failed to deliver report", logger.Error(err))
		}
		if !opts.email {
			log.Info("Report generated", logger.String("report", text))
		}

		log.Info("Scheduled report finished",
			logger.String("report_id", report.ID.String()),
			logger.Int("new_documents", len(report.Comparison.NewDocuments)),
			logger.Duration("duration", time.Since(start)))
	}

	a.refreshMetrics(ctx)
}
