package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jjenkins/regwatch/internal/model"
)

// Raw record field names used by the Federal Register documents API
const (
	fieldDocumentNumber  = "document_number"
	fieldPublicationDate = "publication_date"
	fieldType            = "type"
	fieldTitle           = "title"
	fieldHTMLURL         = "html_url"
)

// SkippedRecord identifies a raw record that could not be normalized
type SkippedRecord struct {
	Index int
	Err   error
}

// NormalizeResult contains the documents extracted from a batch of raw records
type NormalizeResult struct {
	Documents      []model.RegulationDocument
	Skipped        int
	SkippedRecords []SkippedRecord
	OutOfWindow    int
	Duplicates     int
}

// Normalizer turns raw upstream records into a canonical document collection
type Normalizer struct {
	agencyAliases map[string]struct{}
	typeMarkers   map[string]model.DocType
}

// NewNormalizer creates a new Normalizer. Type markers are matched case-insensitively;
// a nil marker table falls back to the Federal Register defaults.
func NewNormalizer(cfg model.NormalizerConfig) *Normalizer {
	markers := cfg.TypeMarkers
	if markers == nil {
		markers = model.DefaultTypeMarkers()
	}

	n := &Normalizer{
		agencyAliases: make(map[string]struct{}, len(cfg.AgencyAliases)),
		typeMarkers:   make(map[string]model.DocType, len(markers)),
	}
	for alias := range cfg.AgencyAliases {
		n.agencyAliases[strings.ToLower(alias)] = struct{}{}
	}
	for marker, docType := range markers {
		n.typeMarkers[strings.ToLower(strings.TrimSpace(marker))] = docType
	}
	return n
}

// Normalize validates the window, then converts, filters, de-duplicates and sorts the records.
// Malformed records are skipped and counted rather than failing the batch.
func (n *Normalizer) Normalize(records []model.RawRecord, window model.TimeWindow) (*NormalizeResult, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if len(n.agencyAliases) > 0 {
		if _, ok := n.agencyAliases[strings.ToLower(window.Agency)]; !ok {
			return nil, fmt.Errorf("%w: unknown agency %q", model.ErrInvalidWindow, window.Agency)
		}
	}

	result := &NormalizeResult{
		Documents: make([]model.RegulationDocument, 0, len(records)),
	}
	seen := make(map[string]struct{}, len(records))

	for idx, raw := range records {
		doc, err := n.toDocument(raw, window.Agency)
		if err != nil {
			result.Skipped++
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{Index: idx, Err: err})
			continue
		}

		// Upstream date filtering is not trusted
		if !window.Contains(doc.PublicationDate) {
			result.OutOfWindow++
			continue
		}

		if _, dup := seen[doc.DocumentID]; dup {
			result.Duplicates++
			continue
		}
		seen[doc.DocumentID] = struct{}{}
		result.Documents = append(result.Documents, doc)
	}

	SortDocuments(result.Documents)
	return result, nil
}

// DocType maps an upstream type string to a category
func (n *Normalizer) DocType(raw string) model.DocType {
	if t, ok := n.typeMarkers[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return model.DocTypeOther
}

// toDocument is the only place that reads fields out of an untyped record
func (n *Normalizer) toDocument(raw model.RawRecord, agency string) (model.RegulationDocument, error) {
	id := stringField(raw, fieldDocumentNumber)
	if id == "" {
		return model.RegulationDocument{}, fmt.Errorf("%w: missing %s", model.ErrMalformedRecord, fieldDocumentNumber)
	}

	dateStr := stringField(raw, fieldPublicationDate)
	pubDate, err := model.ParseDay(dateStr)
	if err != nil {
		return model.RegulationDocument{}, fmt.Errorf("%w: document %s has bad %s %q", model.ErrMalformedRecord, id, fieldPublicationDate, dateStr)
	}

	return model.RegulationDocument{
		DocumentID:      id,
		PublicationDate: pubDate,
		DocType:         n.DocType(stringField(raw, fieldType)),
		Title:           stringField(raw, fieldTitle),
		URL:             stringField(raw, fieldHTMLURL),
		Agency:          agency,
	}, nil
}

// stringField returns a trimmed string value, tolerating numeric identifiers
func stringField(raw model.RawRecord, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// SortDocuments orders documents newest first, ties broken by ascending id
func SortDocuments(docs []model.RegulationDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		return documentLess(docs[i], docs[j])
	})
}

func documentLess(a, b model.RegulationDocument) bool {
	if !a.PublicationDate.Equal(b.PublicationDate) {
		return a.PublicationDate.After(b.PublicationDate)
	}
	return a.DocumentID < b.DocumentID
}
