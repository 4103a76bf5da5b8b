package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/regwatch/internal/model"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDay(s)
	require.NoError(t, err)
	return d
}

func testWindow(t *testing.T, start, end string) model.TimeWindow {
	t.Helper()
	return model.TimeWindow{StartDate: date(t, start), EndDate: date(t, end), Agency: "HHS"}
}

func raw(id, date, typ string) model.RawRecord {
	return model.RawRecord{
		"document_number":  id,
		"publication_date": date,
		"type":             typ,
		"title":            "Title " + id,
		"html_url":         "https://www.federalregister.gov/d/" + id,
	}
}

func ids(docs []model.RegulationDocument) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.DocumentID)
	}
	return out
}

func TestNormalize_SkipsMalformedRecords(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{})
	records := []model.RawRecord{
		raw("2025-00001", "2025-01-15", "Rule"),
		raw("2025-00002", "not-a-date", "Rule"),
		raw("2025-00003", "2025-01-10", "Proposed Rule"),
	}

	res, err := n.Normalize(records, testWindow(t, "2025-01-01", "2025-01-31"))
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-00001", "2025-00003"}, ids(res.Documents))
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.SkippedRecords, 1)
	assert.Equal(t, 1, res.SkippedRecords[0].Index)
	assert.True(t, errors.Is(res.SkippedRecords[0].Err, model.ErrMalformedRecord))
}

func TestNormalize_MissingIdentifier(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{})
	records := []model.RawRecord{
		{"publication_date": "2025-01-15", "type": "Rule"},
		{"document_number": "   ", "publication_date": "2025-01-15"},
		{"document_number": "2025-00009"},
	}

	res, err := n.Normalize(records, testWindow(t, "2025-01-01", "2025-01-31"))
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
	assert.Equal(t, 3, res.Skipped)
}

func TestNormalize_InvalidWindowBeforeProcessing(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{})
	records := []model.RawRecord{raw("2025-00001", "2025-01-15", "Rule")}

	res, err := n.Normalize(records, testWindow(t, "2025-02-01", "2025-01-01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidWindow))
	assert.Nil(t, res)
}

func TestNormalize_UnknownAgency(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{
		AgencyAliases: map[string]struct{}{"CMS": {}},
	})
	w := testWindow(t, "2025-01-01", "2025-01-31")

	_, err := n.Normalize(nil, w)
	assert.True(t, errors.Is(err, model.ErrInvalidWindow))

	w.Agency = "cms"
	res, err := n.Normalize(nil, w)
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
}

func TestNormalize_DropsOutOfWindow(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{})
	records := []model.RawRecord{
		raw("A", "2024-12-31", "Rule"),
		raw("B", "2025-01-01", "Rule"),
		raw("C", "2025-01-31", "Rule"),
		raw("D", "2025-02-01", "Rule"),
	}

	res, err := n.Normalize(records, testWindow(t, "2025-01-01", "2025-01-31"))
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, ids(res.Documents))
	assert.Equal(t, 2, res.OutOfWindow)
	for _, d := range res.Documents {
		assert.True(t, testWindow(t, "2025-01-01", "2025-01-31").Contains(d.PublicationDate))
	}
}

func TestNormalize_FirstOccurrenceWins(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{})
	records := []model.RawRecord{
		raw("A", "2025-01-05", "Rule"),
		raw("A", "2025-01-20", "Proposed Rule"),
	}

	res, err := n.Normalize(records, testWindow(t, "2025-01-01", "2025-01-31"))
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, model.DocTypeFinal, res.Documents[0].DocType)
	assert.Equal(t, "2025-01-05", res.Documents[0].PublicationDate.Format(model.DateLayout))
	assert.Equal(t, 1, res.Duplicates)
}

func TestNormalize_SortOrder(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{})
	records := []model.RawRecord{
		raw("B", "2025-01-10", "Rule"),
		raw("C", "2025-01-20", "Rule"),
		raw("A", "2025-01-10", "Rule"),
		raw("D", "2025-01-01", "Rule"),
	}

	res, err := n.Normalize(records, testWindow(t, "2025-01-01", "2025-01-31"))
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B", "D"}, ids(res.Documents))
}

func TestNormalize_MapsFields(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{})
	records := []model.RawRecord{raw("2025-00001", "2025-01-15", "Rule")}

	res, err := n.Normalize(records, testWindow(t, "2025-01-01", "2025-01-31"))
	require.NoError(t, err)

	want := []model.RegulationDocument{{
		DocumentID:      "2025-00001",
		PublicationDate: date(t, "2025-01-15"),
		DocType:         model.DocTypeFinal,
		Title:           "Title 2025-00001",
		URL:             "https://www.federalregister.gov/d/2025-00001",
		Agency:          "HHS",
	}}
	if diff := cmp.Diff(want, res.Documents); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_NumericIdentifiers(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{})
	records := []model.RawRecord{
		{"document_number": json.Number("12345"), "publication_date": "2025-01-15"},
		{"document_number": float64(678), "publication_date": "2025-01-14"},
	}

	res, err := n.Normalize(records, testWindow(t, "2025-01-01", "2025-01-31"))
	require.NoError(t, err)
	assert.Equal(t, []string{"12345", "678"}, ids(res.Documents))
}

func TestNormalizer_DocType(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{})
	tests := map[string]model.DocType{
		"Rule":           model.DocTypeFinal,
		"RULE":           model.DocTypeFinal,
		" final rule ":   model.DocTypeFinal,
		"PRORULE":        model.DocTypeProposed,
		"Proposed Rule":  model.DocTypeProposed,
		"Notice":         model.DocTypeOther,
		"":               model.DocTypeOther,
		"Presidential D": model.DocTypeOther,
	}
	for in, want := range tests {
		assert.Equal(t, want, n.DocType(in), "type %q", in)
	}
}

func TestNormalizer_CustomMarkers(t *testing.T) {
	n := NewNormalizer(model.NormalizerConfig{
		TypeMarkers: map[string]model.DocType{"Interim Final Rule": model.DocTypeFinal},
	})

	assert.Equal(t, model.DocTypeFinal, n.DocType("interim final rule"))
	assert.Equal(t, model.DocTypeOther, n.DocType("Rule"))
}
