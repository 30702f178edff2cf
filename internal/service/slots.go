package service

import (
	"context"

	"github.com/sessionworks/bookings/internal/repo/postgres"
)

// SlotAllocator enforces the monthly capacity invariant. Remaining is a
// cheap read shown to every visitor; Consume is the only admission path.
type SlotAllocator interface {
	Remaining(ctx context.Context, year, month int) (int, error)
	Consume(ctx context.Context, year, month int) error
	Reset(ctx context.Context, year, month int) error
	MaxSlots() int
}

type slotAllocator struct {
	repo     postgres.SlotsRepo
	maxSlots int
}

func NewSlotAllocator(repo postgres.SlotsRepo, maxSlots int) SlotAllocator {
	return &slotAllocator{repo: repo, maxSlots: maxSlots}
}

func (a *slotAllocator) Remaining(ctx context.Context, year, month int) (int, error) {
	used, err := a.repo.Used(ctx, year, month)
	if err != nil {
		return 0, err
	}
	remaining := a.maxSlots - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (a *slotAllocator) Consume(ctx context.Context, year, month int) error {
	return a.repo.Consume(ctx, year, month, a.maxSlots)
}

func (a *slotAllocator) Reset(ctx context.Context, year, month int) error {
	return a.repo.Reset(ctx, year, month)
}

func (a *slotAllocator) MaxSlots() int {
	return a.maxSlots
}
