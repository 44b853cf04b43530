package passage

import (
	"errors"
	"time"
)

// DayLayout is the local calendar day key format for passages.
const DayLayout = "2006-01-02"

// Domain errors
var (
	ErrNotFound     = errors.New("passage not found")
	ErrDuplicateDay = errors.New("member already has a passage for this day")
)

// Passage records one accepted check-in: a member entered on a given local
// calendar day and received that day's next sequence number.
type Passage struct {
	ID       string
	MemberID string

	// ScannedAt is the acceptance instant.
	ScannedAt time.Time

	// Day is ScannedAt's local calendar day (DayLayout). It scopes both the
	// one-passage-per-member rule and the daily sequence numbering.
	Day string

	// DailyNumber is the 1-based sequence number across all members for Day,
	// assigned at insertion time and immutable thereafter.
	DailyNumber int
}

// DayOf returns the local calendar day key for an instant.
func DayOf(t time.Time) string {
	return t.Local().Format(DayLayout)
}

// StartOfDay returns local midnight for the day containing t.
func StartOfDay(t time.Time) time.Time {
	lt := t.Local()
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, lt.Location())
}

// Validate checks if the Passage has valid data.
// PRE: Passage struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Day always matches ScannedAt's local calendar day
func (p *Passage) Validate() error {
	if p.MemberID == "" {
		return errors.New("passage must be associated with a member")
	}
	if p.ScannedAt.IsZero() {
		return errors.New("scan time must be set")
	}
	if p.DailyNumber < 1 {
		return errors.New("daily number must be at least 1")
	}
	if p.Day != DayOf(p.ScannedAt) {
		return errors.New("day must match the scan time's local calendar day")
	}
	return nil
}
