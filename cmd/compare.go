package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jjenkins/regwatch/internal/logger"
	"github.com/jjenkins/regwatch/internal/model"
	"github.com/jjenkins/regwatch/internal/service"
)

var (
	compareAgency    string
	compareDays      int
	compareAsOf      string
	compareFormat    string
	compareMaxListed int
	compareSummarize bool
	compareEmail     bool
	compareSave      bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare rules published in the last N days with the N days before",
	Long: `Compare fetches Final and Proposed rules from the Federal Register for an
agency alias, for the current window ending today and for the previous window of
the same length, and prints counts, net change and newly published documents.

Examples:
  # HHS and CMS together, last 30 days
  regwatch compare

  # CMS only, last 7 days, as JSON
  regwatch compare --agency CMS --days 7 --format json

  # Summarize with Claude, email it and save it to the database
  regwatch compare --summarize --email --save`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVarP(&compareAgency, "agency", "a", "", "Agency alias (default from config, usually BOTH)")
	compareCmd.Flags().IntVarP(&compareDays, "days", "d", 0, "Window length in days (default from config)")
	compareCmd.Flags().StringVar(&compareAsOf, "as-of", "", "Last day of the current window (YYYY-MM-DD, default today)")
	compareCmd.Flags().StringVarP(&compareFormat, "format", "f", service.FormatText, "Output format: text, json or yaml")
	compareCmd.Flags().IntVar(&compareMaxListed, "max-listed", 0, "Documents listed per section in text output (default from config)")
	compareCmd.Flags().BoolVar(&compareSummarize, "summarize", false, "Rewrite the report as a briefing with Claude (needs ANTHROPIC_API_KEY)")
	compareCmd.Flags().BoolVar(&compareEmail, "email", false, "Email the report (needs SMTP_USER, SMTP_PASSWORD, COMPLIANCE_EMAIL_TO)")
	compareCmd.Flags().BoolVar(&compareSave, "save", false, "Save the report to the database (needs DATABASE_URL)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	compareFormat = strings.ToLower(compareFormat)
	switch compareFormat {
	case service.FormatText, service.FormatJSON, service.FormatYAML:
	default:
		return fmt.Errorf("unsupported format %q", compareFormat)
	}

	agency := compareAgency
	if agency == "" {
		agency = cfg.Report.Agency
	}
	days := compareDays
	if days == 0 {
		days = cfg.Report.Days
	}
	maxListed := compareMaxListed
	if maxListed == 0 {
		maxListed = cfg.Report.MaxListed
	}

	asOf := time.Now()
	if compareAsOf != "" {
		parsed, err := model.ParseDay(compareAsOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
		}
		asOf = parsed
	}

	a, err := newApp(ctx, appOptions{persist: compareSave})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.reporter.Run(ctx, agency, days, asOf)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if compareFormat == service.FormatText || compareSummarize || compareEmail {
		text, err := a.deliver(ctx, report, deliverOptions{
			summarize: compareSummarize,
			email:     compareEmail,
			maxListed: maxListed,
		})
		switch {
		case errors.Is(err, service.ErrNotConfigured):
			color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "warning: email not sent, SMTP settings are incomplete")
		case err != nil:
			return err
		}
		if compareFormat == service.FormatText {
			fmt.Fprintln(out, text)
		}
	}

	if compareFormat != service.FormatText {
		encoded, err := service.Encode(report, compareFormat, maxListed)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(encoded))
	}

	if compareSave {
		a.refreshMetrics(ctx)
	}

	appLogger.Debug("Compare finished", logger.String("report_id", report.ID.String()))
	return nil
}
