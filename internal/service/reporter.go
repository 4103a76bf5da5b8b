package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jjenkins/regwatch/internal/logger"
	"github.com/jjenkins/regwatch/internal/model"
)

// ErrUnknownAgency is returned when an agency alias has no configured slugs
var ErrUnknownAgency = errors.New("unknown agency")

// DocumentFetcher retrieves raw records for a set of agency slugs and a date range
type DocumentFetcher interface {
	FetchDocuments(ctx context.Context, slugs []string, start, end time.Time) ([]model.RawRecord, error)
}

// ReportSaver persists a finished report; changed is false when an identical report already exists
type ReportSaver interface {
	SaveReport(ctx context.Context, report *model.Report) (changed bool, err error)
}

// Reporter orchestrates fetching both windows, normalizing them and comparing the results
type Reporter struct {
	fetcher    DocumentFetcher
	normalizer *Normalizer
	agencies   map[string][]string
	saver      ReportSaver
	collectors *Collectors
	logger     logger.Logger
	now        func() time.Time
}

// ReporterOption customizes a Reporter
type ReporterOption func(*Reporter)

// WithSaver persists every generated report through s
func WithSaver(s ReportSaver) ReporterOption {
	return func(r *Reporter) { r.saver = s }
}

// WithCollectors records Prometheus metrics for every report
func WithCollectors(c *Collectors) ReporterOption {
	return func(r *Reporter) { r.collectors = c }
}

// WithClock overrides the clock used for GeneratedAt
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) { r.now = now }
}

// NewReporter creates a new Reporter. agencies maps an alias (HHS, CMS, BOTH) to Federal Register slugs.
func NewReporter(fetcher DocumentFetcher, normalizer *Normalizer, agencies map[string][]string, log logger.Logger, opts ...ReporterOption) *Reporter {
	normalized := make(map[string][]string, len(agencies))
	for alias, slugs := range agencies {
		normalized[strings.ToUpper(alias)] = slugs
	}

	r := &Reporter{
		fetcher:    fetcher,
		normalizer: normalizer,
		agencies:   normalized,
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Agencies returns the configured aliases in sorted order
func (r *Reporter) Agencies() []string {
	aliases := make([]string, 0, len(r.agencies))
	for alias := range r.agencies {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Slugs returns the Federal Register slugs behind an alias
func (r *Reporter) Slugs(alias string) ([]string, error) {
	slugs, ok := r.agencies[strings.ToUpper(strings.TrimSpace(alias))]
	if !ok || len(slugs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgency, alias)
	}
	return slugs, nil
}

// Run generates a report comparing the days-long window ending on asOf with the window before it
func (r *Reporter) Run(ctx context.Context, agency string, days int, asOf time.Time) (*model.Report, error) {
	agency = strings.ToUpper(strings.TrimSpace(agency))
	slugs, err := r.Slugs(agency)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	current, previous := model.NewReportWindows(agency, asOf, days)
	log := r.logger.With(logger.String("agency", agency), logger.String("current", current.String()),
		logger.String("previous", previous.String()))

	// Both fetches are independent; the comparison needs both before it can run
	var currentRaw, previousRaw []model.RawRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := r.fetcher.FetchDocuments(gctx, slugs, current.StartDate, current.EndDate)
		if err != nil {
			return fmt.Errorf("failed to fetch current window: %w", err)
		}
		currentRaw = recs
		return nil
	})
	g.Go(func() error {
		recs, err := r.fetcher.FetchDocuments(gctx, slugs, previous.StartDate, previous.EndDate)
		if err != nil {
			return fmt.Errorf("failed to fetch previous window: %w", err)
		}
		previousRaw = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		r.collectors.observeFetchFailure(agency)
		return nil, err
	}

	currentRes, err := r.normalize(log, currentRaw, current, "current")
	if err != nil {
		return nil, err
	}
	previousRes, err := r.normalize(log, previousRaw, previous, "previous")
	if err != nil {
		return nil, err
	}

	comparison := Compare(currentRes.Documents, previousRes.Documents)
	r.collectors.observeComparison(agency, len(comparison.NewDocuments), time.Since(start))

	report := &model.Report{
		ID:                uuid.New(),
		Agency:            agency,
		Current:           current,
		Previous:          previous,
		CurrentDocuments:  currentRes.Documents,
		PreviousDocuments: previousRes.Documents,
		Comparison:        comparison,
		CurrentSkipped:    currentRes.Skipped,
		PreviousSkipped:   previousRes.Skipped,
		GeneratedAt:       r.now().UTC(),
	}
	report.Checksum = Checksum(report)

	log.Info("Comparison complete",
		logger.Int("current_total", len(currentRes.Documents)),
		logger.Int("previous_total", len(previousRes.Documents)),
		logger.Int("net_change", comparison.NetChange),
		logger.Int("new_documents", len(comparison.NewDocuments)),
		logger.Duration("duration", time.Since(start)))

	if r.saver != nil {
		changed, err := r.saver.SaveReport(ctx, report)
		switch {
		case err != nil:
			log.Error("Failed to save report", logger.Error(err))
		case changed:
			log.Info("Report saved", logger.String("report_id", report.ID.String()))
		default:
			log.Info("Report unchanged since last run, not saved")
		}
	}

	return report, nil
}

func (r *Reporter) normalize(log logger.Logger, raw []model.RawRecord, window model.TimeWindow, label string) (*NormalizeResult, error) {
	res, err := r.normalizer.Normalize(raw, window)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s window: %w", label, err)
	}
	r.collectors.observeNormalize(window.Agency, label, res)

	for _, s := range res.SkippedRecords {
		log.Warn("Skipped malformed record",
			logger.String("window", label),
			logger.Int("index", s.Index),
			logger.Error(s.Err))
	}
	if res.OutOfWindow > 0 || res.Duplicates > 0 {
		log.Debug("Dropped upstream records",
			logger.String("window", label),
			logger.Int("out_of_window", res.OutOfWindow),
			logger.Int("duplicates", res.Duplicates))
	}

	return res, nil
}

// Checksum computes an MD5 over the document ids of both windows for change detection
func Checksum(report *model.Report) string {
	var b strings.Builder
	b.WriteString(report.Agency)
	b.WriteString("|current:")
	for _, d := range report.CurrentDocuments {
		b.WriteString(d.DocumentID)
		b.WriteString(";")
	}
	b.WriteString("|previous:")
	for _, d := range report.PreviousDocuments {
		b.WriteString(d.DocumentID)
		b.WriteString(";")
	}

	hash := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}
