// Package schedule decides whether a screening may occupy a hall at a given
// date and time. All checks are pure: callers load the hall's same-day
// screenings and pass them in as slots.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/cinema-booking/internal/apperr"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// Operating window for screening starts, inclusive, in minutes after midnight.
	OpensAt  = 14 * 60
	ClosesAt = 23 * 60

	// DisplayShift is added to start+duration to obtain the stored end time.
	DisplayShift = 120 * time.Minute
	// Buffer is the minimum idle time between consecutive screenings in a hall.
	Buffer = 30 * time.Minute

	// minModifyDays is how many calendar days must remain before a screening
	// may still be updated or deleted.
	minModifyDays = 2
)

// Proposal is a screening start that has not been persisted yet.
type Proposal struct {
	Date     time.Time
	Start    time.Time
	Duration time.Duration
}

// Slot is an already scheduled screening in the same hall.
type Slot struct {
	ID    uint64
	Start time.Time
	End   time.Time
}

// NewProposal parses a YYYY-MM-DD date and an HH:MM start in UTC.
func NewProposal(date, clock string, durationMin int) (Proposal, error) {
	d, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return Proposal{}, apperr.Validation(apperr.ReasonInvalidInput, "date must be formatted as YYYY-MM-DD")
	}
	c, err := time.ParseInLocation(TimeLayout, clock, time.UTC)
	if err != nil {
		return Proposal{}, apperr.Validation(apperr.ReasonInvalidInput, "time must be formatted as HH:MM")
	}
	if durationMin < 0 {
		return Proposal{}, apperr.Validation(apperr.ReasonInvalidInput, "movie duration cannot be negative")
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, time.UTC)
	return Proposal{Date: d, Start: start, Duration: time.Duration(durationMin) * time.Minute}, nil
}

// End is the shifted end of the proposal.
func (p Proposal) End() time.Time { return EndOf(p.Start, p.Duration) }

// EndTime is the HH:MM form of End.
func (p Proposal) EndTime() string { return p.End().Format(TimeLayout) }

// EndOf returns start + duration + DisplayShift.
func EndOf(start time.Time, duration time.Duration) time.Time {
	return start.Add(duration).Add(DisplayShift)
}

// Today truncates now to midnight UTC.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil counts calendar days from today to date. Negative for past dates.
func DaysUntil(today, date time.Time) int {
	t := Today(today)
	y, m, d := date.UTC().Date()
	target := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(target.Sub(t).Hours() / 24)
}

// Check validates p against the other screenings in the same hall and date.
// sameDay must not contain the screening being updated.
func Check(today time.Time, p Proposal, sameDay []Slot) error {
	if DaysUntil(today, p.Date) < 0 {
		return apperr.Validation(apperr.ReasonPastDate, "screening date must not be in the past")
	}

	minute := p.Start.Hour()*60 + p.Start.Minute()
	if minute < OpensAt || minute > ClosesAt {
		return apperr.Conflict(apperr.ReasonOutsideOperatingHours,
			"screening start time is outside of allowed hours (14:00 - 23:00)")
	}

	ps, pe := p.Start, p.End()
	for _, s := range sameDay {
		startsInside := !ps.Before(s.Start) && ps.Before(s.End)
		coversStart := !s.Start.Before(ps) && s.Start.Before(pe)
		if startsInside || coversStart {
			return apperr.Conflict(apperr.ReasonHallUnavailable,
				fmt.Sprintf("the hall is not available at the given time (screening %d runs %s-%s)",
					s.ID, s.Start.Format(TimeLayout), s.End.Format(TimeLayout)))
		}
	}

	prev, next := neighbours(ps, sameDay)
	if prev != nil && prev.End.Add(Buffer).After(ps) {
		return apperr.Conflict(apperr.ReasonInsufficientBufferBefore,
			"there must be at least a 30-minute break before the screening")
	}
	if next != nil && pe.Add(Buffer).After(next.Start) {
		return apperr.Conflict(apperr.ReasonInsufficientBufferAfter,
			"there must be at least a 30-minute break after the screening")
	}
	return nil
}

// neighbours returns the closest slot starting strictly before and strictly
// after start.
func neighbours(start time.Time, slots []Slot) (prev, next *Slot) {
	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	for i := range sorted {
		s := &sorted[i]
		switch {
		case s.Start.Before(start):
			prev = s
		case s.Start.After(start):
			if next == nil {
				next = s
			}
		}
	}
	return prev, next
}

// CheckModifiable rejects changes to a screening fewer than two calendar days
// before its date.
func CheckModifiable(today, date time.Time) error {
	if DaysUntil(today, date) < minModifyDays {
		return apperr.Conflict(apperr.ReasonTooCloseToModify,
			"a screening cannot be changed one day prior to it")
	}
	return nil
}

// CheckCancellable rejects cancelling a reservation one day or less before
// the screening.
func CheckCancellable(today, date time.Time) error {
	if DaysUntil(today, date) <= 1 {
		return apperr.Conflict(apperr.ReasonTooCloseToCancel,
			"you cannot cancel your reservation one day prior to the screening")
	}
	return nil
}

// CheckCapacity rejects moving a screening into a smaller hall.
func CheckCapacity(current, next int) error {
	if next < current {
		return apperr.Conflict(apperr.ReasonCapacityDowngrade,
			fmt.Sprintf("the new hall has %d seats, fewer than the current %d", next, current))
	}
	return nil
}

// Reseed returns the available seats for a screening moved to a hall with
// capacity seats while active reservations already exist.
func Reseed(capacity, active int) (int, error) {
	seats := capacity - active
	if seats < 0 {
		return 0, apperr.Conflict(apperr.ReasonCapacityDowngrade,
			fmt.Sprintf("hall capacity %d cannot hold %d existing reservations", capacity, active))
	}
	return seats, nil
}
