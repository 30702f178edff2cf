package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sessionworks/bookings/internal/domain"
	"github.com/sessionworks/bookings/internal/service"
)

func TestSlotAllocatorRemaining(t *testing.T) {
	slots := newFakeSlotsRepo()
	allocator := service.NewSlotAllocator(slots, maxSlots)

	remaining, err := allocator.Remaining(context.Background(), 2026, 9)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != maxSlots {
		t.Errorf("fresh month remaining = %d, want %d", remaining, maxSlots)
	}

	for i := 0; i < 2; i++ {
		if err := allocator.Consume(context.Background(), 2026, 9); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}

	remaining, _ = allocator.Remaining(context.Background(), 2026, 9)
	if remaining != maxSlots-2 {
		t.Errorf("remaining = %d, want %d", remaining, maxSlots-2)
	}

	// Another month is untouched.
	remaining, _ = allocator.Remaining(context.Background(), 2026, 10)
	if remaining != maxSlots {
		t.Errorf("other month remaining = %d, want %d", remaining, maxSlots)
	}
}

func TestSlotAllocatorResetRestoresCapacity(t *testing.T) {
	slots := newFakeSlotsRepo()
	allocator := service.NewSlotAllocator(slots, maxSlots)

	for i := 0; i < maxSlots; i++ {
		if err := allocator.Consume(context.Background(), 2026, 9); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}
	if err := allocator.Consume(context.Background(), 2026, 9); !errors.Is(err, domain.ErrCapacityExhausted) {
		t.Fatalf("expected ErrCapacityExhausted, got %v", err)
	}

	if err := allocator.Reset(context.Background(), 2026, 9); err != nil {
		t.Fatalf("reset: %v", err)
	}

	remaining, _ := allocator.Remaining(context.Background(), 2026, 9)
	if remaining != maxSlots {
		t.Errorf("remaining after reset = %d, want %d", remaining, maxSlots)
	}
	if err := allocator.Consume(context.Background(), 2026, 9); err != nil {
		t.Errorf("consume after reset: %v", err)
	}
}

func TestConcurrentConsumeExactness(t *testing.T) {
	slots := newFakeSlotsRepo()
	allocator := service.NewSlotAllocator(slots, maxSlots)

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- allocator.Consume(context.Background(), 2026, 9)
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, domain.ErrCapacityExhausted) {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != maxSlots {
		t.Errorf("successes = %d, want exactly %d", successes, maxSlots)
	}
	used, _ := slots.Used(context.Background(), 2026, 9)
	if used != maxSlots {
		t.Errorf("used = %d, want %d", used, maxSlots)
	}
}
