package domain

import "time"

// SlotState is what every visitor sees on the booking page.
type SlotState struct {
	Remaining int `json:"remaining"`
	MaxSlots  int `json:"max_slots"`
}

// MonthKey identifies one calendar month's capacity counter.
type MonthKey struct {
	Year  int
	Month int
}

func MonthOf(t time.Time) MonthKey {
	y, m, _ := t.UTC().Date()
	return MonthKey{Year: y, Month: int(m)}
}

func (k MonthKey) Validate() error {
	if k.Month < 1 || k.Month > 12 {
		return Invalid("month", "must be between 1 and 12")
	}
	if k.Year < 2000 || k.Year > 2200 {
		return Invalid("year", "out of range")
	}
	return nil
}
