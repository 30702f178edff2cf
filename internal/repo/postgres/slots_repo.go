package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionworks/bookings/internal/domain"
)

// SlotsRepo owns the per-month capacity counter. The counter row is created
// lazily on first consume and is only ever written through Consume and Reset.
type SlotsRepo interface {
	// Used returns the number of slots already consumed; a missing row counts as 0.
	Used(ctx context.Context, year, month int) (int, error)
	// Consume increments the counter iff capacity remains. It is a single
	// conditional statement, so concurrent callers can never over-consume.
	Consume(ctx context.Context, year, month, maxSlots int) error
	// Reset unconditionally sets the counter back to zero.
	Reset(ctx context.Context, year, month int) error
}

type SlotsRepoImpl struct{ pool *pgxpool.Pool }

func NewSlotsRepo(pool *pgxpool.Pool) *SlotsRepoImpl { return &SlotsRepoImpl{pool: pool} }

// execer is satisfied by both *pgxpool.Pool and pgx.Tx so the booking
// transaction can run the same consume statement.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// The test-and-increment happens inside one statement; the affected-row
// count tells us whether capacity was left. Never split into read-then-write.
const consumeSlotSQL = `
INSERT INTO slot_counters (year, month, used)
VALUES ($1, $2, 1)
ON CONFLICT (year, month) DO UPDATE
SET used = slot_counters.used + 1, updated_at = now()
WHERE slot_counters.used < $3
`

func consumeSlot(ctx context.Context, db execer, year, month, maxSlots int) error {
	if maxSlots < 1 {
		return domain.ErrCapacityExhausted
	}

	tag, err := db.Exec(ctx, consumeSlotSQL, year, month, maxSlots)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCapacityExhausted
	}
	return nil
}

func (r *SlotsRepoImpl) Used(ctx context.Context, year, month int) (int, error) {
	const q = `SELECT used FROM slot_counters WHERE year=$1 AND month=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var used int
	err := r.pool.QueryRow(ctx, q, year, month).Scan(&used)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return used, err
}

func (r *SlotsRepoImpl) Consume(ctx context.Context, year, month, maxSlots int) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return consumeSlot(ctx, r.pool, year, month, maxSlots)
}

func (r *SlotsRepoImpl) Reset(ctx context.Context, year, month int) error {
	const q = `
INSERT INTO slot_counters (year, month, used)
VALUES ($1, $2, 0)
ON CONFLICT (year, month) DO UPDATE
SET used = 0, updated_at = now()
`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, year, month)
	return err
}

var _ SlotsRepo = (*SlotsRepoImpl)(nil)
