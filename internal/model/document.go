package model

import (
	"errors"
	"time"
)

// DateLayout is the calendar date format used by the Federal Register API
const DateLayout = "2006-01-02"

var (
	// ErrMalformedRecord is reported for a raw record missing an identifier or a parseable date
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidWindow is returned when a window cannot be queried (start after end, unknown agency)
	ErrInvalidWindow = errors.New("invalid window")
)

// DocType is the closed set of document categories
type DocType string

const (
	DocTypeFinal    DocType = "Final"
	DocTypeProposed DocType = "Proposed"
	DocTypeOther    DocType = "Other"
)

// DocTypes lists every category in display order
var DocTypes = []DocType{DocTypeFinal, DocTypeProposed, DocTypeOther}

// ParseDocType maps a category name back to a DocType; unknown names map to Other
func ParseDocType(s string) DocType {
	switch DocType(s) {
	case DocTypeFinal:
		return DocTypeFinal
	case DocTypeProposed:
		return DocTypeProposed
	default:
		return DocTypeOther
	}
}

// RegulationDocument is a normalized Federal Register document
type RegulationDocument struct {
	DocumentID      string    `json:"document_id" yaml:"document_id"`
	PublicationDate time.Time `json:"publication_date" yaml:"publication_date"`
	DocType         DocType   `json:"doc_type" yaml:"doc_type"`
	Title           string    `json:"title" yaml:"title"`
	URL             string    `json:"url" yaml:"url"`
	// Agency is the configured alias the document was fetched under, such as HHS or BOTH
	Agency          string    `json:"agency" yaml:"agency"`
}

// RawRecord is an upstream record as decoded from JSON, schema not controlled by us
type RawRecord map[string]any

// NormalizerConfig holds the data the normalizer needs instead of package-level constants
type NormalizerConfig struct {
	// AgencyAliases restricts which window agencies are accepted. Empty accepts any.
	AgencyAliases map[string]struct{}

	// TypeMarkers maps a lower-cased upstream type string to a category
	TypeMarkers map[string]DocType
}

// DefaultTypeMarkers returns the markers the Federal Register uses for rules
func DefaultTypeMarkers() map[string]DocType {
	return map[string]DocType{
		"rule":          DocTypeFinal,
		"final rule":    DocTypeFinal,
		"prorule":       DocTypeProposed,
		"proposed rule": DocTypeProposed,
	}
}

// PeriodComparison is the result of comparing two adjacent windows
type PeriodComparison struct {
	CurrentCounts  map[DocType]int      `json:"current_counts" yaml:"current_counts"`
	PreviousCounts map[DocType]int      `json:"previous_counts" yaml:"previous_counts"`
	NetChange      int                  `json:"net_change" yaml:"net_change"`
	NewDocuments   []RegulationDocument `json:"new_documents" yaml:"new_documents"`
}

// CurrentTotal returns the number of documents in the current window
func (p PeriodComparison) CurrentTotal() int {
	return total(p.CurrentCounts)
}

// PreviousTotal returns the number of documents in the previous window
func (p PeriodComparison) PreviousTotal() int {
	return total(p.PreviousCounts)
}

func total(counts map[DocType]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
