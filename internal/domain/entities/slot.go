package entities

import (
	"fmt"
	"time"
)

const (
	// SlotLayout is the hour:minute format slots are expressed in.
	SlotLayout = "15:04"
	// DateLayout is the calendar date format used by booking requests.
	DateLayout = "2006-01-02"
)

// SlotSchedule is the fixed, ordered list of daily appointment start times
// in the spa's local time zone.
type SlotSchedule struct {
	slots []string
	index map[string]struct{}
	loc   *time.Location
}

// NewSlotSchedule validates and builds a schedule. Slots must be HH:MM and strictly increasing.
func NewSlotSchedule(slots []string, loc *time.Location) (*SlotSchedule, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("slot schedule must not be empty")
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &SlotSchedule{
		slots: make([]string, 0, len(slots)),
		index: make(map[string]struct{}, len(slots)),
		loc:   loc,
	}

	var prev time.Time
	for i, raw := range slots {
		parsed, err := time.Parse(SlotLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q: %w", raw, err)
		}
		if i > 0 && !parsed.After(prev) {
			return nil, fmt.Errorf("slot %q is out of order", raw)
		}
		prev = parsed

		normalized := parsed.Format(SlotLayout)
		s.slots = append(s.slots, normalized)
		s.index[normalized] = struct{}{}
	}

	return s, nil
}

// Slots returns a copy of the configured slot list.
func (s *SlotSchedule) Slots() []string {
	out := make([]string, len(s.slots))
	copy(out, s.slots)
	return out
}

// Location returns the schedule's time zone.
func (s *SlotSchedule) Location() *time.Location {
	return s.loc
}

// Contains reports whether slot is one of the permitted start times.
func (s *SlotSchedule) Contains(slot string) bool {
	_, ok := s.index[slot]
	return ok
}

// ParseDate parses a YYYY-MM-DD date as local midnight.
func (s *SlotSchedule) ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, s.loc)
}

// At combines a calendar date and a slot into an absolute instant.
func (s *SlotSchedule) At(date time.Time, slot string) (time.Time, error) {
	if !s.Contains(slot) {
		return time.Time{}, fmt.Errorf("%s is not a bookable slot", slot)
	}
	clock, _ := time.Parse(SlotLayout, slot)
	y, m, d := date.In(s.loc).Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, s.loc), nil
}

// DayWindow returns the half-open instant range [local midnight, next local midnight)
// covering the given date.
func (s *SlotSchedule) DayWindow(date time.Time) (time.Time, time.Time) {
	y, m, d := date.In(s.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// SlotOf normalizes an instant to its local HH:MM.
func (s *SlotSchedule) SlotOf(t time.Time) string {
	return t.In(s.loc).Format(SlotLayout)
}

// SlotAvailability describes one slot of a day.
type SlotAvailability struct {
	Time      string    `json:"time"`
	Start     time.Time `json:"start"`
	Booked    bool      `json:"booked"`
	Past      bool      `json:"past"`
	Available bool      `json:"available"`
}
