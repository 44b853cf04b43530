package projections

import (
	"context"
	"time"

	"unisp/internal/domain/member"
	"unisp/internal/domain/passage"
)

// PassagesTodayPassageStore defines the passage store interface for the
// today view.
type PassagesTodayPassageStore interface {
	ListByDay(ctx context.Context, day string) ([]passage.Passage, error)
}

// PassagesTodayMemberStore defines the member store interface for the
// today view.
type PassagesTodayMemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// PassagesTodayDeps holds dependencies for the today projection.
type PassagesTodayDeps struct {
	PassageStore PassagesTodayPassageStore
	MemberStore  PassagesTodayMemberStore
}

// PassageRow is one line of the scanner's live list.
type PassageRow struct {
	ID             string    `json:"id"`
	MemberID       string    `json:"memberId"`
	Name           string    `json:"name"`
	SequenceNumber int       `json:"sequenceNumber"`
	ScannedAt      time.Time `json:"scannedAt"`
}

// QueryGetPassagesToday returns today's passages with member names, newest
// first.
// POST: Rows are ordered by sequence number descending
func QueryGetPassagesToday(ctx context.Context, now time.Time, deps PassagesTodayDeps) ([]PassageRow, error) {
	if now.IsZero() {
		now = time.Now()
	}

	passages, err := deps.PassageStore.ListByDay(ctx, passage.DayOf(now))
	if err != nil {
		return nil, err
	}

	rows := make([]PassageRow, 0, len(passages))
	for _, p := range passages {
		name := ""
		if m, err := deps.MemberStore.GetByID(ctx, p.MemberID); err == nil {
			name = m.FullName()
		}
		rows = append(rows, PassageRow{
			ID:             p.ID,
			MemberID:       p.MemberID,
			Name:           name,
			SequenceNumber: p.DailyNumber,
			ScannedAt:      p.ScannedAt,
		})
	}
	return rows, nil
}
