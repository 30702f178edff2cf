package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sessionworks/bookings/internal/domain"
	"github.com/sessionworks/bookings/internal/repo/postgres"
	"github.com/sessionworks/bookings/pkg/events"
	"github.com/sessionworks/bookings/pkg/logger"
)

type BookingService interface {
	// Create admits a booking against the monthly slot counter. The returned
	// bool reports whether the confirmation notification was dispatched;
	// notification failures never revert the booking.
	Create(ctx context.Context, req *domain.BookingCreateReq) (*domain.Booking, bool, error)
	Approve(ctx context.Context, id string) (*domain.Booking, error)
	Reject(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
}

type bookingService struct {
	repo      postgres.BookingsRepo
	allocator SlotAllocator
	eventBus  events.Publisher
}

func NewBookingService(repo postgres.BookingsRepo, allocator SlotAllocator, eventBus events.Publisher) BookingService {
	return &bookingService{
		repo:      repo,
		allocator: allocator,
		eventBus:  eventBus,
	}
}

func (s *bookingService) Create(ctx context.Context, req *domain.BookingCreateReq) (*domain.Booking, bool, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	key := domain.MonthOf(req.StartsAt)

	// Fast path only; the conditional update inside CreateWithSlot is the
	// source of truth and re-validates capacity atomically.
	remaining, err := s.allocator.Remaining(ctx, key.Year, key.Month)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check slot state: %w", err)
	}
	if remaining == 0 {
		return nil, false, domain.ErrCapacityExhausted
	}

	booking := &domain.Booking{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Email:           req.Email,
		DiscordName:     req.DiscordName,
		Note:            req.Note,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.Duration,
	}

	if err := s.repo.CreateWithSlot(ctx, booking, s.allocator.MaxSlots()); err != nil {
		if err == domain.ErrCapacityExhausted {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("failed to create booking: %w", err)
	}

	event := events.BookingCreatedEvent{
		BookingID:       booking.ID,
		Name:            booking.Name,
		Email:           booking.Email,
		DiscordName:     booking.DiscordName,
		StartsAt:        booking.StartsAt,
		DurationMinutes: booking.DurationMinutes,
		CreatedAt:       booking.CreatedAt,
	}

	notified := true
	if err := s.eventBus.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err, "booking_id", booking.ID)
		notified = false
	}

	return booking, notified, nil
}

func (s *bookingService) Approve(ctx context.Context, id string) (*domain.Booking, error) {
	return s.decide(ctx, id, domain.BookingConfirmed)
}

func (s *bookingService) Reject(ctx context.Context, id string) (*domain.Booking, error) {
	return s.decide(ctx, id, domain.BookingRejected)
}

func (s *bookingService) decide(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error) {
	ok, err := s.repo.UpdateStatus(ctx, id, domain.BookingNew, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	if !ok {
		booking, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get booking: %w", err)
		}
		if booking == nil {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrInvalidState
	}

	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking after decision: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}

	event := events.BookingDecidedEvent{
		BookingID: booking.ID,
		Name:      booking.Name,
		Email:     booking.Email,
		Status:    string(booking.Status),
		StartsAt:  booking.StartsAt,
		DecidedAt: time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.BookingDecided, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking decided event", "error", err, "booking_id", booking.ID)
	}

	return booking, nil
}

func (s *bookingService) List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	return s.repo.List(ctx, limit, offset, status)
}
