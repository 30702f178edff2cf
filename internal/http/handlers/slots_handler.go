package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sessionworks/bookings/internal/domain"
	"github.com/sessionworks/bookings/internal/http/response"
)

// SlotState reports remaining capacity for a month (current month by default).
func (h *Handlers) SlotState(w http.ResponseWriter, r *http.Request) {
	key, ok := monthFromQuery(w, r)
	if !ok {
		return
	}

	remaining, err := h.slots.Remaining(r.Context(), key.Year, key.Month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.SlotState{
		Remaining: remaining,
		MaxSlots:  h.slots.MaxSlots(),
	})
}

type resetSlotsReq struct {
	AdminPass string `json:"adminPass"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
}

// ResetSlots is the manual monthly rollover. Months start at zero implicitly;
// this exists for correcting a counter, not for scheduled use.
func (h *Handlers) ResetSlots(w http.ResponseWriter, r *http.Request) {
	var req resetSlotsReq
	if !decodeJSON(w, r, &req) {
		return
	}

	if !h.gate.Authorize(req.AdminPass) {
		response.Unauthorized(w, "Invalid admin credential")
		return
	}

	key := domain.MonthOf(time.Now())
	if req.Year != 0 || req.Month != 0 {
		key = domain.MonthKey{Year: req.Year, Month: req.Month}
	}
	if err := key.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := h.slots.Reset(r.Context(), key.Year, key.Month); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"year":      key.Year,
		"month":     key.Month,
		"remaining": h.slots.MaxSlots(),
	})
}

func monthFromQuery(w http.ResponseWriter, r *http.Request) (domain.MonthKey, bool) {
	key := domain.MonthOf(time.Now())

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "Invalid year parameter")
			return domain.MonthKey{}, false
		}
		key.Year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "Invalid month parameter")
			return domain.MonthKey{}, false
		}
		key.Month = n
	}

	if err := key.Validate(); err != nil {
		writeDomainError(w, r, err)
		return domain.MonthKey{}, false
	}
	return key, true
}
