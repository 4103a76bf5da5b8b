package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/regwatch/internal/model"
)

func doc(t *testing.T, id, published string, docType model.DocType) model.RegulationDocument {
	t.Helper()
	return model.RegulationDocument{
		DocumentID:      id,
		PublicationDate: date(t, published),
		DocType:         docType,
		Agency:          "HHS",
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name         string
		current      []model.RegulationDocument
		previous     []model.RegulationDocument
		wantCurrent  map[model.DocType]int
		wantPrevious map[model.DocType]int
		wantNet      int
		wantNew      []string
	}{
		{
			name: "one new proposed rule",
			current: []model.RegulationDocument{
				doc(t, "A2", "2025-01-20", model.DocTypeProposed),
				doc(t, "A1", "2025-01-10", model.DocTypeFinal),
			},
			previous: []model.RegulationDocument{
				doc(t, "A1", "2025-01-10", model.DocTypeFinal),
			},
			wantCurrent:  map[model.DocType]int{model.DocTypeFinal: 1, model.DocTypeProposed: 1, model.DocTypeOther: 0},
			wantPrevious: map[model.DocType]int{model.DocTypeFinal: 1, model.DocTypeProposed: 0, model.DocTypeOther: 0},
			wantNet:      1,
			wantNew:      []string{"A2"},
		},
		{
			name:         "both windows empty",
			wantCurrent:  map[model.DocType]int{model.DocTypeFinal: 0, model.DocTypeProposed: 0, model.DocTypeOther: 0},
			wantPrevious: map[model.DocType]int{model.DocTypeFinal: 0, model.DocTypeProposed: 0, model.DocTypeOther: 0},
			wantNet:      0,
			wantNew:      []string{},
		},
		{
			name: "previous window empty",
			current: []model.RegulationDocument{
				doc(t, "C3", "2025-01-30", model.DocTypeOther),
				doc(t, "C1", "2025-01-20", model.DocTypeFinal),
				doc(t, "C2", "2025-01-20", model.DocTypeFinal),
			},
			wantCurrent:  map[model.DocType]int{model.DocTypeFinal: 2, model.DocTypeProposed: 0, model.DocTypeOther: 1},
			wantPrevious: map[model.DocType]int{model.DocTypeFinal: 0, model.DocTypeProposed: 0, model.DocTypeOther: 0},
			wantNet:      3,
			wantNew:      []string{"C3", "C1", "C2"},
		},
		{
			name:    "fewer documents than before",
			current: []model.RegulationDocument{doc(t, "B1", "2025-01-20", model.DocTypeFinal)},
			previous: []model.RegulationDocument{
				doc(t, "B1", "2024-12-20", model.DocTypeFinal),
				doc(t, "B0", "2024-12-10", model.DocTypeProposed),
			},
			wantCurrent:  map[model.DocType]int{model.DocTypeFinal: 1, model.DocTypeProposed: 0, model.DocTypeOther: 0},
			wantPrevious: map[model.DocType]int{model.DocTypeFinal: 1, model.DocTypeProposed: 1, model.DocTypeOther: 0},
			wantNet:      -1,
			wantNew:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.current, tt.previous)

			if diff := cmp.Diff(tt.wantCurrent, got.CurrentCounts); diff != "" {
				t.Errorf("current counts mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantPrevious, got.PreviousCounts); diff != "" {
				t.Errorf("previous counts mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.wantNet, got.NetChange)
			require.NotNil(t, got.NewDocuments)
			assert.Equal(t, tt.wantNew, ids(got.NewDocuments))

			assert.Equal(t, len(tt.current), got.CurrentTotal())
			assert.Equal(t, len(tt.previous), got.PreviousTotal())
			assert.Equal(t, got.CurrentTotal()-got.PreviousTotal(), got.NetChange)
		})
	}
}

func TestCompare_TypeChangeIsNotNew(t *testing.T) {
	current := []model.RegulationDocument{doc(t, "X1", "2025-01-20", model.DocTypeFinal)}
	previous := []model.RegulationDocument{doc(t, "X1", "2024-12-20", model.DocTypeProposed)}

	got := Compare(current, previous)
	assert.Empty(t, got.NewDocuments)
	assert.Equal(t, 1, got.CurrentCounts[model.DocTypeFinal])
	assert.Equal(t, 1, got.PreviousCounts[model.DocTypeProposed])
}

func TestCompare_NewDocumentsSubsetOfCurrent(t *testing.T) {
	current := []model.RegulationDocument{
		doc(t, "N2", "2025-01-21", model.DocTypeFinal),
		doc(t, "S1", "2025-01-20", model.DocTypeFinal),
		doc(t, "N1", "2025-01-19", model.DocTypeProposed),
	}
	previous := []model.RegulationDocument{
		doc(t, "S1", "2024-12-20", model.DocTypeFinal),
		doc(t, "P1", "2024-12-19", model.DocTypeFinal),
	}

	got := Compare(current, previous)
	currentIDs := map[string]bool{}
	for _, d := range current {
		currentIDs[d.DocumentID] = true
	}
	previousIDs := map[string]bool{}
	for _, d := range previous {
		previousIDs[d.DocumentID] = true
	}
	for _, d := range got.NewDocuments {
		assert.True(t, currentIDs[d.DocumentID], "%s not in current", d.DocumentID)
		assert.False(t, previousIDs[d.DocumentID], "%s in previous", d.DocumentID)
	}
	assert.Equal(t, []string{"N2", "N1"}, ids(got.NewDocuments))
}

func TestCompare_NewDocumentsKeepCurrentOrder(t *testing.T) {
	current := []model.RegulationDocument{
		doc(t, "Z1", "2025-01-01", model.DocTypeFinal),
		doc(t, "A1", "2025-01-20", model.DocTypeProposed),
		doc(t, "M1", "2025-01-10", model.DocTypeOther),
	}
	previous := []model.RegulationDocument{doc(t, "M1", "2024-12-10", model.DocTypeOther)}

	got := Compare(current, previous)
	assert.Equal(t, []string{"Z1", "A1"}, ids(got.NewDocuments))
}

func TestCompare_Deterministic(t *testing.T) {
	current := []model.RegulationDocument{
		doc(t, "A", "2025-01-20", model.DocTypeFinal),
		doc(t, "B", "2025-01-20", model.DocTypeOther),
	}
	previous := []model.RegulationDocument{doc(t, "C", "2024-12-20", model.DocTypeFinal)}

	first := Compare(current, previous)
	second := Compare(current, previous)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Compare is not deterministic (-first +second):\n%s", diff)
	}
}

func TestCountByType_UnknownTypeCountsAsOther(t *testing.T) {
	docs := []model.RegulationDocument{{DocumentID: "Z", DocType: model.DocType("Notice")}}

	counts := CountByType(docs)
	assert.Equal(t, map[model.DocType]int{
		model.DocTypeFinal:    0,
		model.DocTypeProposed: 0,
		model.DocTypeOther:    1,
	}, counts)
}
