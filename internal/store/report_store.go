package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jjenkins/regwatch/internal/model"
)

const (
	periodCurrent  = "current"
	periodPrevious = "previous"
)

// ReportStore handles database operations for generated reports
type ReportStore struct {
	db *sql.DB
}

// NewReportStore creates a new ReportStore
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// SaveReport stores a report and its documents, unless the latest report for the same
// agency and windows already has the same checksum
func (s *ReportStore) SaveReport(ctx context.Context, r *model.Report) (changed bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingChecksum sql.NullString
	checksumQuery := `
		SELECT checksum FROM reports
		WHERE agency = $1 AND current_start = $2 AND current_end = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	err = tx.QueryRowContext(ctx, checksumQuery, r.Agency, r.Current.StartDate, r.Current.EndDate).Scan(&existingChecksum)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to look up previous report: %w", err)
	}

	if existingChecksum.Valid && existingChecksum.String == r.Checksum {
		return false, nil
	}

	cmp := r.Comparison
	insertQuery := `
		INSERT INTO reports (id, agency, current_start, current_end, previous_start, previous_end,
		                     current_final, current_proposed, current_other,
		                     previous_final, previous_proposed, previous_other,
		                     net_change, new_count, skipped_records, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = tx.ExecContext(ctx, insertQuery,
		r.ID,
		r.Agency,
		r.Current.StartDate,
		r.Current.EndDate,
		r.Previous.StartDate,
		r.Previous.EndDate,
		cmp.CurrentCounts[model.DocTypeFinal],
		cmp.CurrentCounts[model.DocTypeProposed],
		cmp.CurrentCounts[model.DocTypeOther],
		cmp.PreviousCounts[model.DocTypeFinal],
		cmp.PreviousCounts[model.DocTypeProposed],
		cmp.PreviousCounts[model.DocTypeOther],
		cmp.NetChange,
		len(cmp.NewDocuments),
		r.CurrentSkipped+r.PreviousSkipped,
		r.Checksum,
		r.GeneratedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert report %s: %w", r.ID, err)
	}

	newIDs := make(map[string]bool, len(cmp.NewDocuments))
	for _, d := range cmp.NewDocuments {
		newIDs[d.DocumentID] = true
	}

	docQuery := `
		INSERT INTO report_documents (report_id, document_id, period, publication_date,
		                              doc_type, title, url, is_new)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (report_id, period, document_id) DO NOTHING
	`
	insertDocs := func(period string, docs []model.RegulationDocument) error {
		for _, d := range docs {
			_, err := tx.ExecContext(ctx, docQuery,
				r.ID,
				d.DocumentID,
				period,
				d.PublicationDate,
				string(d.DocType),
				d.Title,
				d.URL,
				period == periodCurrent && newIDs[d.DocumentID],
			)
			if err != nil {
				return fmt.Errorf("failed to insert document %s: %w", d.DocumentID, err)
			}
		}
		return nil
	}
	if err := insertDocs(periodCurrent, r.CurrentDocuments); err != nil {
		return false, err
	}
	if err := insertDocs(periodPrevious, r.PreviousDocuments); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

const summaryColumns = `
	id, agency, current_start, current_end, previous_start, previous_end,
	current_final, current_proposed, current_other,
	previous_final, previous_proposed, previous_other,
	net_change, new_count, skipped_records, checksum, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (model.ReportSummary, error) {
	var s model.ReportSummary
	err := row.Scan(
		&s.ID,
		&s.Agency,
		&s.CurrentStart,
		&s.CurrentEnd,
		&s.PreviousStart,
		&s.PreviousEnd,
		&s.CurrentFinal,
		&s.CurrentProp,
		&s.CurrentOther,
		&s.PreviousFinal,
		&s.PreviousProp,
		&s.PreviousOther,
		&s.NetChange,
		&s.NewCount,
		&s.SkippedRecords,
		&s.Checksum,
		&s.CreatedAt,
	)
	return s, err
}

// GetByID retrieves a stored report header, or nil if it does not exist
func (s *ReportStore) GetByID(ctx context.Context, id uuid.UUID) (*model.ReportSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM reports WHERE id = $1`

	summary, err := scanSummary(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	return &summary, nil
}

// GetRecent retrieves the newest reports, optionally limited to one agency
func (s *ReportStore) GetRecent(ctx context.Context, agency string, limit int) ([]model.ReportSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + summaryColumns + `
		FROM reports
		WHERE ($1 = '' OR agency = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, agency, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	defer rows.Close()

	var reports []model.ReportSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, summary)
	}

	return reports, rows.Err()
}

// GetDocuments retrieves the documents stored with a report, current period first
func (s *ReportStore) GetDocuments(ctx context.Context, reportID uuid.UUID) ([]model.StoredDocument, error) {
	query := `
		SELECT document_id, period, publication_date, doc_type, title, url, is_new
		FROM report_documents
		WHERE report_id = $1
		ORDER BY period ASC, publication_date DESC, document_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents for report %s: %w", reportID, err)
	}
	defer rows.Close()

	var docs []model.StoredDocument
	for rows.Next() {
		var d model.StoredDocument
		var docType string
		err := rows.Scan(
			&d.DocumentID,
			&d.Window,
			&d.PublicationDate,
			&docType,
			&d.Title,
			&d.URL,
			&d.IsNew,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.DocType = model.ParseDocType(docType)
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// CountReports returns the number of stored reports
func (s *ReportStore) CountReports(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}
