package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionworks/bookings/internal/domain"
	"github.com/sessionworks/bookings/pkg/logger"
)

type BookingsRepo interface {
	// CreateWithSlot persists the booking and consumes one slot for the month
	// of StartsAt in a single transaction. If no capacity remains the booking
	// row is rolled back with it and domain.ErrCapacityExhausted is returned.
	CreateWithSlot(ctx context.Context, b *domain.Booking, maxSlots int) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// UpdateStatus transitions a booking from one status to another and
	// reports whether a row was actually updated.
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (bool, error)
	List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
}

type BookingsRepoImpl struct{ pool *pgxpool.Pool }

func NewBookingsRepo(pool *pgxpool.Pool) *BookingsRepoImpl { return &BookingsRepoImpl{pool: pool} }

const bookingCols = `id, status, name, email, discord_name, note,
starts_at, duration_minutes, created_at, updated_at`

func (r *BookingsRepoImpl) CreateWithSlot(ctx context.Context, b *domain.Booking, maxSlots int) error {
	const insertSQL = `INSERT INTO bookings (
    id, status, name, email, discord_name, note, starts_at, duration_minutes
  ) VALUES ($1,'new',$2,$3,$4,$5,$6,$7)
  RETURNING status, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.WarnContext(ctx, "Failed to rollback booking transaction", "error", rbErr)
		}
	}()

	err = tx.QueryRow(ctx, insertSQL,
		b.ID, b.Name, b.Email, b.DiscordName, b.Note,
		b.StartsAt, b.DurationMinutes,
	).Scan(&b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return err
	}

	key := domain.MonthOf(b.StartsAt)
	if err := consumeSlot(ctx, tx, key.Year, key.Month, maxSlots); err != nil {
		// Rollback via defer; the booking row never becomes visible.
		return err
	}

	return tx.Commit(ctx)
}

func (r *BookingsRepoImpl) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.Status, &b.Name, &b.Email, &b.DiscordName, &b.Note,
		&b.StartsAt, &b.DurationMinutes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &b, err
}

func (r *BookingsRepoImpl) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (bool, error) {
	const q = `UPDATE bookings SET status=$3, updated_at=now() WHERE id=$1 AND status=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *BookingsRepoImpl) List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + bookingCols + ` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	args := []any{limit, offset}
	if status != nil {
		q = `SELECT ` + bookingCols + ` FROM bookings WHERE status=$3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, *status)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bs := make([]domain.Booking, 0, limit)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.Status, &b.Name, &b.Email, &b.DiscordName, &b.Note,
			&b.StartsAt, &b.DurationMinutes, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bs = append(bs, b)
	}
	return bs, rows.Err()
}

var _ BookingsRepo = (*BookingsRepoImpl)(nil)
