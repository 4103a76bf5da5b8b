package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// MetricsService calculates and stores aggregate metrics over saved reports
type MetricsService struct {
	db *sql.DB
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(db *sql.DB) *MetricsService {
	return &MetricsService{db: db}
}

// SystemMetrics represents aggregate metrics across all saved reports
type SystemMetrics struct {
	TotalReports      int
	TotalDocuments    int
	TotalNewDocuments int
	TotalSkipped      int
	BusiestAgency     string
	BusiestAgencyNew  int
	LastReportAt      time.Time
}

// CalculateAndStore calculates report metrics and stores them
func (m *MetricsService) CalculateAndStore(ctx context.Context) (*SystemMetrics, error) {
	metrics := &SystemMetrics{}

	totalsQuery := `
		SELECT
			COUNT(*),
			COALESCE(SUM(new_count), 0),
			COALESCE(SUM(skipped_records), 0)
		FROM reports
	`
	err := m.db.QueryRowContext(ctx, totalsQuery).Scan(
		&metrics.TotalReports,
		&metrics.TotalNewDocuments,
		&metrics.TotalSkipped,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate report metrics: %w", err)
	}

	docsQuery := `SELECT COUNT(DISTINCT document_id) FROM report_documents`
	if err := m.db.QueryRowContext(ctx, docsQuery).Scan(&metrics.TotalDocuments); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	busiestQuery := `
		SELECT agency, SUM(new_count) AS total_new
		FROM reports
		GROUP BY agency
		ORDER BY total_new DESC, agency
		LIMIT 1
	`
	err = m.db.QueryRowContext(ctx, busiestQuery).Scan(
		&metrics.BusiestAgency,
		&metrics.BusiestAgencyNew,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find busiest agency: %w", err)
	}

	var lastReport sql.NullTime
	if err := m.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM reports`).Scan(&lastReport); err != nil {
		return nil, fmt.Errorf("failed to find last report: %w", err)
	}
	if lastReport.Valid {
		metrics.LastReportAt = lastReport.Time
	}

	values := []struct {
		name  string
		value string
	}{
		{"total_reports", strconv.Itoa(metrics.TotalReports)},
		{"total_documents", strconv.Itoa(metrics.TotalDocuments)},
		{"total_new_documents", strconv.Itoa(metrics.TotalNewDocuments)},
		{"total_skipped_records", strconv.Itoa(metrics.TotalSkipped)},
		{"busiest_agency", metrics.BusiestAgency},
	}
	for _, v := range values {
		if err := m.storeMetric(ctx, v.name, v.value); err != nil {
			return nil, err
		}
	}

	return metrics, nil
}

// storeMetric stores a single metric value
func (m *MetricsService) storeMetric(ctx context.Context, name, value string) error {
	query := `
		INSERT INTO metrics (metric_name, metric_value, calculated_at)
		VALUES ($1, $2, $3)
	`

	_, err := m.db.ExecContext(ctx, query, name, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store metric %s: %w", name, err)
	}

	return nil
}

// GetLatestMetrics retrieves the most recent value of each stored metric
func (m *MetricsService) GetLatestMetrics(ctx context.Context) (map[string]string, error) {
	query := `
		SELECT DISTINCT ON (metric_name) metric_name, metric_value
		FROM metrics
		ORDER BY metric_name, calculated_at DESC
	`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics[name] = value
	}

	return metrics, rows.Err()
}
