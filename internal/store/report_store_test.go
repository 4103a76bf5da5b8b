package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/regwatch/internal/model"
)

func day(s string) time.Time {
	d, _ := model.ParseDay(s)
	return d
}

func sampleReport() *model.Report {
	current, previous := model.NewReportWindows("HHS", day("2025-01-31"), 30)
	a1 := model.RegulationDocument{DocumentID: "A1", PublicationDate: day("2025-01-10"), DocType: model.DocTypeFinal, Title: "One", URL: "https://example.test/A1"}
	a2 := model.RegulationDocument{DocumentID: "A2", PublicationDate: day("2025-01-20"), DocType: model.DocTypeProposed, Title: "Two", URL: "https://example.test/A2"}
	p1 := model.RegulationDocument{DocumentID: "A1", PublicationDate: day("2024-12-20"), DocType: model.DocTypeFinal, Title: "One"}

	return &model.Report{
		ID:                uuid.MustParse("5f1b7c0e-9a43-4e61-9a36-2f4f2d0f7a11"),
		Agency:            "HHS",
		Current:           current,
		Previous:          previous,
		CurrentDocuments:  []model.RegulationDocument{a2, a1},
		PreviousDocuments: []model.RegulationDocument{p1},
		Comparison: model.PeriodComparison{
			CurrentCounts:  map[model.DocType]int{model.DocTypeFinal: 1, model.DocTypeProposed: 1, model.DocTypeOther: 0},
			PreviousCounts: map[model.DocType]int{model.DocTypeFinal: 1, model.DocTypeProposed: 0, model.DocTypeOther: 0},
			NetChange:      1,
			NewDocuments:   []model.RegulationDocument{a2},
		},
		CurrentSkipped: 1,
		Checksum:       "abc123",
		GeneratedAt:    time.Date(2025, 2, 1, 7, 0, 0, 0, time.UTC),
	}
}

var checksumQuery = regexp.QuoteMeta("SELECT checksum FROM reports")

func TestReportStore_SaveReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := sampleReport()

	mock.ExpectBegin()
	mock.ExpectQuery(checksumQuery).
		WithArgs("HHS", r.Current.StartDate, r.Current.EndDate).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).
		WithArgs(r.ID, "HHS", r.Current.StartDate, r.Current.EndDate, r.Previous.StartDate, r.Previous.EndDate,
			1, 1, 0, 1, 0, 0, 1, 1, 1, "abc123", r.GeneratedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_documents")).
		WithArgs(r.ID, "A2", "current", day("2025-01-20"), "Proposed", "Two", "https://example.test/A2", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_documents")).
		WithArgs(r.ID, "A1", "current", day("2025-01-10"), "Final", "One", "https://example.test/A1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_documents")).
		WithArgs(r.ID, "A1", "previous", day("2024-12-20"), "Final", "One", "", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	changed, err := NewReportStore(db).SaveReport(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_SaveReportUnchanged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(checksumQuery).
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow("abc123"))
	mock.ExpectRollback()

	changed, err := NewReportStore(db).SaveReport(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_SaveReportInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(checksumQuery).
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow("older"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	changed, err := NewReportStore(db).SaveReport(context.Background(), sampleReport())
	require.Error(t, err)
	assert.False(t, changed)
	assert.Contains(t, err.Error(), "failed to insert report")
	assert.NoError(t, mock.ExpectationsWereMet())
}

var summaryRowColumns = []string{
	"id", "agency", "current_start", "current_end", "previous_start", "previous_end",
	"current_final", "current_proposed", "current_other",
	"previous_final", "previous_proposed", "previous_other",
	"net_change", "new_count", "skipped_records", "checksum", "created_at",
}

func TestReportStore_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.MustParse("5f1b7c0e-9a43-4e61-9a36-2f4f2d0f7a11")
	created := time.Date(2025, 2, 1, 7, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(summaryRowColumns).AddRow(
			id.String(), "CMS", day("2025-01-02"), day("2025-01-31"), day("2024-12-03"), day("2025-01-01"),
			3, 2, 1, 1, 1, 0, 4, 2, 0, "abc", created,
		))

	got, err := NewReportStore(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "CMS", got.Agency)
	assert.Equal(t, 6, got.CurrentTotal())
	assert.Equal(t, 2, got.PreviousTotal())
	assert.Equal(t, 4, got.NetChange)
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(summaryRowColumns))

	got, err := NewReportStore(db).GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReportStore_GetRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(summaryRowColumns)
	for i, agency := range []string{"HHS", "HHS"} {
		rows.AddRow(uuid.New().String(), agency, day("2025-01-02"), day("2025-01-31"), day("2024-12-03"), day("2025-01-01"),
			i, 0, 0, 0, 0, 0, i, i, 0, "c", time.Now())
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ($1 = '' OR agency = $1)")).
		WithArgs("HHS", 20).
		WillReturnRows(rows)

	got, err := NewReportStore(db).GetRecent(context.Background(), "HHS", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, got[1].NetChange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_GetDocuments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_documents")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"document_id", "period", "publication_date", "doc_type", "title", "url", "is_new"}).
			AddRow("A2", "current", day("2025-01-20"), "Proposed", "Two", "u2", true).
			AddRow("A1", "previous", day("2024-12-20"), "Notice", "One", "u1", false))

	docs, err := NewReportStore(db).GetDocuments(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, model.DocTypeProposed, docs[0].DocType)
	assert.True(t, docs[0].IsNew)
	assert.Equal(t, "previous", docs[1].Window)
	assert.Equal(t, model.DocTypeOther, docs[1].DocType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_CountReports(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := NewReportStore(db).CountReports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
