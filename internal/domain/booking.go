package domain

import (
	"time"

	"github.com/sessionworks/bookings/internal/utils"
)

type BookingStatus string

const (
	BookingNew       BookingStatus = "new"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingNew, BookingConfirmed, BookingRejected:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// AllowedDurations is the fixed set of session lengths in minutes.
var AllowedDurations = []int{30, 45, 60}

func IsAllowedDuration(minutes int) bool {
	for _, d := range AllowedDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

type Booking struct {
	ID              string        `json:"id"`
	Status          BookingStatus `json:"status"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	DiscordName     string        `json:"discord_name,omitempty"`
	Note            string        `json:"note,omitempty"`
	StartsAt        time.Time     `json:"starts_at"`
	DurationMinutes int           `json:"duration_minutes"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type BookingCreateReq struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	DiscordName string    `json:"discordName"`
	Note        string    `json:"note"`
	StartsAt    time.Time `json:"startsAt"`
	Duration    int       `json:"duration"`
}

func (r *BookingCreateReq) Normalize() {
	r.Name = utils.NormalizeString(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
	r.DiscordName = utils.NormalizeString(r.DiscordName)
	r.Note = utils.NormalizeString(r.Note)
}

func (r *BookingCreateReq) Validate() error {
	if r.Name == "" {
		return Invalid("name", "required")
	}
	if !utils.IsValidEmail(r.Email) {
		return Invalid("email", "must be a valid email address")
	}
	if r.StartsAt.IsZero() {
		return Invalid("startsAt", "required")
	}
	if !r.StartsAt.After(time.Now()) {
		return Invalid("startsAt", "must be in the future")
	}
	if !IsAllowedDuration(r.Duration) {
		return Invalid("duration", "must be one of 30, 45 or 60 minutes")
	}
	return nil
}

type BookingCreateRes struct {
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
	Notified  bool   `json:"notified"`
}
