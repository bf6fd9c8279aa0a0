package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateWindow is an inclusive creation-date filter: from Start at midnight through
// the last second of End.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// ParseDateWindow parses two YYYY-MM-DD dates in UTC.
func ParseDateWindow(start, end string) (DateWindow, error) {
	s, err := time.ParseInLocation(DateLayout, start, time.UTC)
	if err != nil {
		return DateWindow{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}

	e, err := time.ParseInLocation(DateLayout, end, time.UTC)
	if err != nil {
		return DateWindow{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}

	if e.Before(s) {
		return DateWindow{}, fmt.Errorf("start date %s is after end date %s", start, end)
	}

	return DateWindow{Start: s, End: e}, nil
}

// Last is the final instant retained by the window, 23:59:59 of the end day.
func (w DateWindow) Last() time.Time {
	return w.End.Add(24*time.Hour - time.Second)
}

func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.Last())
}

func (w DateWindow) Period() ReportPeriod {
	return ReportPeriod{
		StartDate: w.Start.Format(DateLayout),
		EndDate:   w.End.Format(DateLayout),
	}
}
