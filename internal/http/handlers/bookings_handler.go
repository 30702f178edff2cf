package handlers

import (
	"context"
	"net/http"

	"github.com/sessionworks/bookings/internal/domain"
	"github.com/sessionworks/bookings/internal/http/response"
)

// CreateBooking handles the public booking form
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingCreateReq
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, notified, err := h.bookings.Create(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, domain.BookingCreateRes{
		BookingID: booking.ID,
		Status:    string(booking.Status),
		Notified:  notified,
	})
}

type bookingDecisionReq struct {
	BookingID string `json:"booking_id"`
}

// ApproveBooking confirms a new booking (admin only)
func (h *Handlers) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	h.decideBooking(w, r, h.bookings.Approve)
}

// RejectBooking rejects a new booking (admin only)
func (h *Handlers) RejectBooking(w http.ResponseWriter, r *http.Request) {
	h.decideBooking(w, r, h.bookings.Reject)
}

func (h *Handlers) decideBooking(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, id string) (*domain.Booking, error)) {
	var req bookingDecisionReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BookingID == "" {
		response.BadRequest(w, "booking_id is required")
		return
	}

	booking, err := decide(r.Context(), req.BookingID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// ListBookings lists all bookings with an optional status filter (admin only)
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var status *domain.BookingStatus
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		st, ok := domain.ParseBookingStatus(statusParam)
		if !ok {
			response.BadRequest(w, "Invalid status parameter")
			return
		}
		status = &st
	}

	bookings, err := h.bookings.List(r.Context(), limit, offset, status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, bookings)
}
