package domain

import (
	"time"

	"github.com/sessionworks/bookings/internal/utils"
)

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewVerified  ReviewStatus = "verified"
	ReviewPublished ReviewStatus = "published"
)

// Review validation rules
const (
	MinRating     = 1
	MaxRating     = 5
	MinBodyLength = 10
	MaxBodyURLs   = 2
)

type Review struct {
	ID          string       `json:"id"`
	Status      ReviewStatus `json:"status"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Rating      int          `json:"rating"`
	Title       string       `json:"title,omitempty"`
	Body        string       `json:"body"`
	VerifiedAt  *time.Time   `json:"verified_at,omitempty"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type ReviewSubmitReq struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Rating int    `json:"rating"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

func (r *ReviewSubmitReq) Normalize() {
	r.Name = utils.NormalizeString(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
	r.Title = utils.NormalizeString(r.Title)
	r.Body = utils.NormalizeString(r.Body)
}

func (r *ReviewSubmitReq) Validate() error {
	if r.Name == "" {
		return Invalid("name", "required")
	}
	if !utils.IsValidEmail(r.Email) {
		return Invalid("email", "must be a valid email address")
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return Invalid("rating", "must be between 1 and 5")
	}
	if len(r.Body) < MinBodyLength {
		return Invalid("body", "too short")
	}
	if utils.CountURLs(r.Body) > MaxBodyURLs {
		return Invalid("body", "contains too many links")
	}
	return nil
}

// PublishedReview is the public projection of a review. The submitter's email
// never appears here, and the name is reduced to first name plus last initial.
type PublishedReview struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Rating      int       `json:"rating"`
	Title       string    `json:"title,omitempty"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
}

// ReviewSummary contains aggregate statistics over the published set.
type ReviewSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}
