// Package cmd implements the regwatch command-line interface.
package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jjenkins/regwatch/internal/config"
	"github.com/jjenkins/regwatch/internal/logger"
	"github.com/jjenkins/regwatch/internal/model"
	"github.com/jjenkins/regwatch/internal/service"
	"github.com/jjenkins/regwatch/internal/store"
)

var (
	cfgFile string

	cfg       *config.Config
	appLogger logger.Logger = logger.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "regwatch",
	Short: "Track HHS and CMS rules published in the Federal Register",
	Long: `regwatch fetches rules published in the Federal Register for HHS and CMS,
compares the last N days against the N days before, and reports counts,
net change and newly published documents.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		log, err := logger.New(loaded.Logger)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		cfg, appLogger = loaded, log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = appLogger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./regwatch.yaml)")
}

// app holds the services shared by every command
type app struct {
	reporter   *service.Reporter
	summarizer service.Summarizer
	notifier   *service.EmailNotifier

	// nil when no database is configured
	db      *sql.DB
	reports *store.ReportStore
	metrics *service.MetricsService
}

// appOptions selects the optional parts of the app
type appOptions struct {
	persist  bool
	registry prometheus.Registerer
}

// newApp wires the client, normalizer and reporter, plus the database when persist is set
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	a := &app{}

	client := service.NewFederalRegisterClient(service.ClientConfig{
		BaseURL:    cfg.FederalRegister.BaseURL,
		Timeout:    cfg.FederalRegister.Timeout,
		PerPage:    cfg.FederalRegister.PerPage,
		MaxPages:   cfg.FederalRegister.MaxPages,
		MaxRetries: cfg.FederalRegister.MaxRetries,

		RequestsPerSecond: cfg.FederalRegister.RequestsPerSecond,
	})
	normalizer := service.NewNormalizer(cfg.NormalizerConfig())

	var reporterOpts []service.ReporterOption
	if opts.registry != nil {
		reporterOpts = append(reporterOpts, service.WithCollectors(service.NewCollectors(opts.registry)))
	}

	if opts.persist {
		if cfg.Database.URL == "" {
			return nil, errors.New("DATABASE_URL is required to save reports")
		}
		appLogger.Info("Connecting to database")
		db, err := store.NewDB(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := store.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.db = db
		a.reports = store.NewReportStore(db)
		a.metrics = service.NewMetricsService(db)
		reporterOpts = append(reporterOpts, service.WithSaver(a.reports))
	}

	a.reporter = service.NewReporter(client, normalizer, cfg.AgencyMap(), appLogger, reporterOpts...)

	if cfg.Summarizer.APIKey != "" {
		a.summarizer = service.NewClaude(service.ClaudeConfig{
			APIKey:    cfg.Summarizer.APIKey,
			Model:     cfg.Summarizer.Model,
			MaxTokens: cfg.Summarizer.MaxTokens,
			Timeout:   cfg.Summarizer.Timeout,
		}, appLogger)
	} else {
		a.summarizer = service.NoopSummarizer{}
	}

	a.notifier = service.NewEmailNotifier(service.EmailConfig{
		Server:   cfg.SMTP.Server,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		To:       cfg.SMTP.Recipients(),
	}, appLogger)

	return a, nil
}

// Close releases the database connection, if any
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// refreshMetrics recomputes the stored aggregate metrics after a save
func (a *app) refreshMetrics(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	if _, err := a.metrics.CalculateAndStore(ctx); err != nil {
		appLogger.Warn("Failed to update metrics", logger.Error(err))
	}
}

// deliverOptions controls what happens to a finished report besides printing
type deliverOptions struct {
	summarize bool
	email     bool
	maxListed int
}

// deliver renders the report as text, optionally summarizes it and emails the result.
// It returns the text that was delivered.
func (a *app) deliver(ctx context.Context, report *model.Report, opts deliverOptions) (string, error) {
	text := service.RenderText(report, opts.maxListed)

	if opts.summarize {
		summary, err := a.summarizer.Summarize(ctx, text)
		if err != nil {
			appLogger.Warn("Summary failed, sending raw report", logger.Error(err))
		} else {
			text = summary
		}
	}

	if opts.email {
		subject := cfg.SMTP.Subject
		if subject == "" {
			subject = service.DefaultSubject
		}
		if err := a.notifier.Send(ctx, subject, text); err != nil {
			if errors.Is(err, service.ErrNotConfigured) {
				return text, err
			}
			return text, fmt.Errorf("failed to email report: %w", err)
		}
	}

	return text, nil
}
