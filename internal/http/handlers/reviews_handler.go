package handlers

import (
	"net/http"

	"github.com/sessionworks/bookings/internal/domain"
	"github.com/sessionworks/bookings/internal/http/response"
)

type reviewCreateRes struct {
	ReviewID string `json:"review_id"`
	Code     string `json:"code"`
	Notified bool   `json:"notified"`
}

// CreateReview handles public review submission. The raw code is echoed once
// so the submitter can re-open their verification link in the same session.
func (h *Handlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req domain.ReviewSubmitReq
	if !decodeJSON(w, r, &req) {
		return
	}

	review, code, notified, err := h.reviews.Submit(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, reviewCreateRes{
		ReviewID: review.ID,
		Code:     code,
		Notified: notified,
	})
}

type reviewVerifyReq struct {
	ReviewID string `json:"reviewId"`
	Code     string `json:"code"`
}

// VerifyReview consumes a single-use verification code
func (h *Handlers) VerifyReview(w http.ResponseWriter, r *http.Request) {
	var req reviewVerifyReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ReviewID == "" || req.Code == "" {
		response.BadRequest(w, "reviewId and code are required")
		return
	}

	if err := h.reviews.Verify(r.Context(), req.ReviewID, req.Code); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

type reviewPublishReq struct {
	ReviewID      string `json:"reviewId"`
	AdminPassword string `json:"adminPassword"`
}

// PublishReview makes a verified review publicly visible (admin only)
func (h *Handlers) PublishReview(w http.ResponseWriter, r *http.Request) {
	var req reviewPublishReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ReviewID == "" {
		response.BadRequest(w, "reviewId is required")
		return
	}

	if err := h.reviews.Publish(r.Context(), req.ReviewID, req.AdminPassword); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"published": true})
}

type reviewListRes struct {
	Reviews   []domain.PublishedReview `json:"reviews"`
	Aggregate *domain.ReviewSummary    `json:"aggregate"`
}

// ListReviews returns published reviews plus the aggregate rating
func (h *Handlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	reviews, err := h.reviews.ListPublished(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	aggregate, err := h.reviews.Aggregate(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reviewListRes{
		Reviews:   reviews,
		Aggregate: aggregate,
	})
}
