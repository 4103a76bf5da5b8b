package model

import (
	"time"

	"github.com/google/uuid"
)

// Report is one generated change report for an agency
type Report struct {
	ID                uuid.UUID            `json:"id" yaml:"id"`
	Agency            string               `json:"agency" yaml:"agency"`
	Current           TimeWindow           `json:"current_window" yaml:"current_window"`
	Previous          TimeWindow           `json:"previous_window" yaml:"previous_window"`
	CurrentDocuments  []RegulationDocument `json:"current_documents" yaml:"current_documents"`
	PreviousDocuments []RegulationDocument `json:"previous_documents" yaml:"previous_documents"`
	Comparison        PeriodComparison     `json:"comparison" yaml:"comparison"`
	CurrentSkipped    int                  `json:"current_skipped" yaml:"current_skipped"`
	PreviousSkipped   int                  `json:"previous_skipped" yaml:"previous_skipped"`
	Checksum          string               `json:"checksum" yaml:"checksum"`
	GeneratedAt       time.Time            `json:"generated_at" yaml:"generated_at"`
}

// ReportSummary is the stored header of a report, without its documents
type ReportSummary struct {
	ID             uuid.UUID
	Agency         string
	CurrentStart   time.Time
	CurrentEnd     time.Time
	PreviousStart  time.Time
	PreviousEnd    time.Time
	CurrentFinal   int
	CurrentProp    int
	CurrentOther   int
	PreviousFinal  int
	PreviousProp   int
	PreviousOther  int
	NetChange      int
	NewCount       int
	SkippedRecords int
	Checksum       string
	CreatedAt      time.Time
}

// CurrentTotal returns the stored current window document count
func (s ReportSummary) CurrentTotal() int {
	return s.CurrentFinal + s.CurrentProp + s.CurrentOther
}

// PreviousTotal returns the stored previous window document count
func (s ReportSummary) PreviousTotal() int {
	return s.PreviousFinal + s.PreviousProp + s.PreviousOther
}

// StoredDocument is a document row attached to a stored report
type StoredDocument struct {
	RegulationDocument
	Window string // "current" or "previous"
	IsNew  bool
}
