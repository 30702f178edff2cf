package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionworks/bookings/internal/domain"
)

type ReviewsRepo interface {
	Create(ctx context.Context, rev *domain.Review, codeHash string) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	// CodeHash returns the stored verification code hash and current status.
	// The hash is empty once the code has been consumed.
	CodeHash(ctx context.Context, id string) (hash string, status domain.ReviewStatus, err error)
	// MarkVerified transitions pending -> verified and clears the code hash,
	// all in one conditional statement so a replayed code loses the race.
	MarkVerified(ctx context.Context, id string) (bool, error)
	// MarkPublished transitions verified -> published.
	MarkPublished(ctx context.Context, id string) (bool, error)
	ListPublished(ctx context.Context, limit, offset int) ([]domain.Review, error)
	// Aggregate returns count and average rating (rounded to one decimal)
	// over the published set.
	Aggregate(ctx context.Context) (count int, average float64, err error)
}

type ReviewsRepoImpl struct{ pool *pgxpool.Pool }

func NewReviewsRepo(pool *pgxpool.Pool) *ReviewsRepoImpl { return &ReviewsRepoImpl{pool: pool} }

const reviewCols = `id, status, name, email, rating, title, body,
verified_at, published_at, created_at`

func (r *ReviewsRepoImpl) Create(ctx context.Context, rev *domain.Review, codeHash string) error {
	const q = `INSERT INTO reviews (
    id, status, name, email, rating, title, body, code_hash
  ) VALUES ($1,'pending',$2,$3,$4,$5,$6,$7)
  RETURNING status, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.pool.QueryRow(ctx, q,
		rev.ID, rev.Name, rev.Email, rev.Rating, rev.Title, rev.Body, codeHash,
	).Scan(&rev.Status, &rev.CreatedAt)
}

func (r *ReviewsRepoImpl) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	const q = `SELECT ` + reviewCols + ` FROM reviews WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rev domain.Review
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rev.ID, &rev.Status, &rev.Name, &rev.Email, &rev.Rating, &rev.Title, &rev.Body,
		&rev.VerifiedAt, &rev.PublishedAt, &rev.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &rev, err
}

func (r *ReviewsRepoImpl) CodeHash(ctx context.Context, id string) (string, domain.ReviewStatus, error) {
	const q = `SELECT COALESCE(code_hash, ''), status FROM reviews WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var hash string
	var status domain.ReviewStatus
	err := r.pool.QueryRow(ctx, q, id).Scan(&hash, &status)
	if err == pgx.ErrNoRows {
		return "", "", domain.ErrNotFound
	}
	return hash, status, err
}

func (r *ReviewsRepoImpl) MarkVerified(ctx context.Context, id string) (bool, error) {
	const q = `
UPDATE reviews
SET status='verified', verified_at=now(), code_hash=NULL
WHERE id=$1 AND status='pending'
`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *ReviewsRepoImpl) MarkPublished(ctx context.Context, id string) (bool, error) {
	const q = `
UPDATE reviews
SET status='published', published_at=now()
WHERE id=$1 AND status='verified'
`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *ReviewsRepoImpl) ListPublished(ctx context.Context, limit, offset int) ([]domain.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
SELECT ` + reviewCols + `
FROM reviews
WHERE status='published'
ORDER BY published_at DESC
LIMIT $1 OFFSET $2
`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revs := make([]domain.Review, 0, limit)
	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(
			&rev.ID, &rev.Status, &rev.Name, &rev.Email, &rev.Rating, &rev.Title, &rev.Body,
			&rev.VerifiedAt, &rev.PublishedAt, &rev.CreatedAt,
		); err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

func (r *ReviewsRepoImpl) Aggregate(ctx context.Context) (int, float64, error) {
	const q = `
SELECT count(*), COALESCE(ROUND(AVG(rating)::numeric, 1), 0)::float8
FROM reviews
WHERE status='published'
`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int
	var average float64
	err := r.pool.QueryRow(ctx, q).Scan(&count, &average)
	return count, average, err
}

var _ ReviewsRepo = (*ReviewsRepoImpl)(nil)
