package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestNewReportWindows(t *testing.T) {
	tests := []struct {
		name         string
		asOf         string
		days         int
		wantCurrent  [2]string
		wantPrevious [2]string
	}{
		{
			name:         "thirty days",
			asOf:         "2025-03-31",
			days:         30,
			wantCurrent:  [2]string{"2025-03-02", "2025-03-31"},
			wantPrevious: [2]string{"2025-01-31", "2025-03-01"},
		},
		{
			name:         "one day",
			asOf:         "2025-03-31",
			days:         1,
			wantCurrent:  [2]string{"2025-03-31", "2025-03-31"},
			wantPrevious: [2]string{"2025-03-30", "2025-03-30"},
		},
		{
			name:         "zero clamps to one day",
			asOf:         "2025-01-01",
			days:         0,
			wantCurrent:  [2]string{"2025-01-01", "2025-01-01"},
			wantPrevious: [2]string{"2024-12-31", "2024-12-31"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, prev := NewReportWindows("HHS", day(t, tt.asOf), tt.days)

			assert.Equal(t, tt.wantCurrent[0], cur.StartDate.Format(DateLayout))
			assert.Equal(t, tt.wantCurrent[1], cur.EndDate.Format(DateLayout))
			assert.Equal(t, tt.wantPrevious[0], prev.StartDate.Format(DateLayout))
			assert.Equal(t, tt.wantPrevious[1], prev.EndDate.Format(DateLayout))

			assert.Equal(t, cur.Days(), prev.Days())
			assert.True(t, prev.EndDate.AddDate(0, 0, 1).Equal(cur.StartDate))
			assert.Equal(t, "HHS", prev.Agency)
		})
	}
}

func TestNewReportWindowsTruncatesTime(t *testing.T) {
	asOf := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	cur, _ := NewReportWindows("CMS", asOf, 7)

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), cur.EndDate)
	assert.Equal(t, 7, cur.Days())
}

func TestTimeWindowValidate(t *testing.T) {
	ok := TimeWindow{StartDate: day(t, "2025-01-01"), EndDate: day(t, "2025-01-01")}
	assert.NoError(t, ok.Validate())

	inverted := TimeWindow{StartDate: day(t, "2025-01-02"), EndDate: day(t, "2025-01-01")}
	err := inverted.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
}

func TestTimeWindowContains(t *testing.T) {
	w := TimeWindow{StartDate: day(t, "2025-01-10"), EndDate: day(t, "2025-01-20")}

	assert.True(t, w.Contains(day(t, "2025-01-10")))
	assert.True(t, w.Contains(day(t, "2025-01-20")))
	assert.True(t, w.Contains(time.Date(2025, 1, 20, 18, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(day(t, "2025-01-09")))
	assert.False(t, w.Contains(day(t, "2025-01-21")))
}

func TestTimeWindowString(t *testing.T) {
	w := TimeWindow{StartDate: day(t, "2025-01-10"), EndDate: day(t, "2025-01-20")}
	assert.Equal(t, "2025-01-10 to 2025-01-20", w.String())
}

func TestParseDocType(t *testing.T) {
	assert.Equal(t, DocTypeFinal, ParseDocType("Final"))
	assert.Equal(t, DocTypeProposed, ParseDocType("Proposed"))
	assert.Equal(t, DocTypeOther, ParseDocType("Notice"))
}

func TestPeriodComparisonTotals(t *testing.T) {
	p := PeriodComparison{
		CurrentCounts:  map[DocType]int{DocTypeFinal: 2, DocTypeProposed: 1, DocTypeOther: 0},
		PreviousCounts: map[DocType]int{DocTypeFinal: 1, DocTypeProposed: 0, DocTypeOther: 4},
	}
	assert.Equal(t, 3, p.CurrentTotal())
	assert.Equal(t, 5, p.PreviousTotal())
}
