package model

import (
	"fmt"
	"time"
)

// TimeWindow is an inclusive date range queried for one agency
type TimeWindow struct {
	StartDate time.Time `json:"start_date" yaml:"start_date"`
	EndDate   time.Time `json:"end_date" yaml:"end_date"`
	Agency    string    `json:"agency" yaml:"agency"`
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC date
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Validate reports ErrInvalidWindow if the window is inverted
func (w TimeWindow) Validate() error {
	if Day(w.StartDate).After(Day(w.EndDate)) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidWindow,
			w.StartDate.Format(DateLayout), w.EndDate.Format(DateLayout))
	}
	return nil
}

// Contains reports whether d falls within the window bounds
func (w TimeWindow) Contains(d time.Time) bool {
	day := Day(d)
	return !day.Before(Day(w.StartDate)) && !day.After(Day(w.EndDate))
}

// Days returns the window length in calendar days, counting both ends
func (w TimeWindow) Days() int {
	return int(Day(w.EndDate).Sub(Day(w.StartDate)).Hours()/24) + 1
}

// Previous returns the equal-length window ending the day before w starts
func (w TimeWindow) Previous() TimeWindow {
	end := Day(w.StartDate).AddDate(0, 0, -1)
	return TimeWindow{
		StartDate: end.AddDate(0, 0, -(w.Days() - 1)),
		EndDate:   end,
		Agency:    w.Agency,
	}
}

// String formats the window as "start to end"
func (w TimeWindow) String() string {
	return fmt.Sprintf("%s to %s", w.StartDate.Format(DateLayout), w.EndDate.Format(DateLayout))
}

// NewReportWindows builds the current window of the given length ending on asOf,
// and the previous window immediately preceding it. Non-positive lengths are treated as one day.
func NewReportWindows(agency string, asOf time.Time, days int) (current, previous TimeWindow) {
	if days <= 0 {
		days = 1
	}
	end := Day(asOf)
	current = TimeWindow{
		StartDate: end.AddDate(0, 0, -(days - 1)),
		EndDate:   end,
		Agency:    agency,
	}
	return current, current.Previous()
}
