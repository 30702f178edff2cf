package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sessionworks/bookings/internal/domain"
	"github.com/sessionworks/bookings/internal/http/response"
	"github.com/sessionworks/bookings/internal/service"
	"github.com/sessionworks/bookings/pkg/logger"
)

// AdminGate authorizes bearer-secret admin requests.
type AdminGate interface {
	Authorize(supplied string) bool
}

type Handlers struct {
	bookings service.BookingService
	reviews  service.ReviewService
	slots    service.SlotAllocator
	gate     AdminGate
}

func New(bookings service.BookingService, reviews service.ReviewService, slots service.SlotAllocator, gate AdminGate) *Handlers {
	return &Handlers{
		bookings: bookings,
		reviews:  reviews,
		slots:    slots,
		gate:     gate,
	}
}

// RequireAdmin gates a route behind the shared admin secret sent as a
// bearer token.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		secret := strings.TrimPrefix(authHeader, "Bearer ")
		if !h.gate.Authorize(secret) {
			response.Unauthorized(w, "Invalid admin credential")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeDomainError maps domain errors onto the HTTP error taxonomy.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		response.WriteError(w, http.StatusBadRequest, ve.Error(), response.CodeInvalidInput)
	case errors.Is(err, domain.ErrCapacityExhausted):
		response.Conflict(w, "No free slots remaining for this month", response.CodeCapacityExhausted)
	case errors.Is(err, domain.ErrVerificationFailed):
		response.WriteError(w, http.StatusBadRequest, "Verification failed", response.CodeVerificationFailed)
	case errors.Is(err, domain.ErrUnauthorized):
		response.Unauthorized(w, "Invalid admin credential")
	case errors.Is(err, domain.ErrInvalidState):
		response.Conflict(w, "Record is not in the required status", response.CodeInvalidState)
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "Not found")
	default:
		logger.ErrorContext(r.Context(), "Unexpected error", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Something went wrong")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return false
	}
	return true
}

// Helper to parse pagination parameters
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
