package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/sessionworks/bookings/internal/domain"
	"github.com/sessionworks/bookings/internal/repo/postgres"
	"github.com/sessionworks/bookings/internal/utils"
	"github.com/sessionworks/bookings/pkg/events"
	"github.com/sessionworks/bookings/pkg/logger"
)

const (
	aggregateCacheKey = "reviews:aggregate"
	aggregateCacheTTL = 5 * time.Minute
)

// AggregateCache is the subset of the Redis cache the review service needs.
type AggregateCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// AdminGate authorizes the publish transition.
type AdminGate interface {
	Authorize(supplied string) bool
}

type ReviewService interface {
	// Submit stores a pending review and returns the raw verification code.
	// The code is only ever echoed here and mailed; at rest only its hash
	// survives. The bool reports whether the verification email dispatched.
	Submit(ctx context.Context, req *domain.ReviewSubmitReq) (*domain.Review, string, bool, error)
	// Verify consumes the single-use code. All failure modes collapse into
	// domain.ErrVerificationFailed to avoid enumeration.
	Verify(ctx context.Context, id, code string) error
	Publish(ctx context.Context, id, adminSecret string) error
	ListPublished(ctx context.Context, limit, offset int) ([]domain.PublishedReview, error)
	Aggregate(ctx context.Context) (*domain.ReviewSummary, error)
}

type reviewService struct {
	repo          postgres.ReviewsRepo
	gate          AdminGate
	eventBus      events.Publisher
	cache         AggregateCache
	publicBaseURL string
}

func NewReviewService(repo postgres.ReviewsRepo, gate AdminGate, eventBus events.Publisher, cache AggregateCache, publicBaseURL string) ReviewService {
	return &reviewService{
		repo:          repo,
		gate:          gate,
		eventBus:      eventBus,
		cache:         cache,
		publicBaseURL: publicBaseURL,
	}
}

func (s *reviewService) Submit(ctx context.Context, req *domain.ReviewSubmitReq) (*domain.Review, string, bool, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", false, err
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to generate verification code: %w", err)
	}

	codeHash, err := argon2id.CreateHash(code, argon2id.DefaultParams)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to hash verification code: %w", err)
	}

	review := &domain.Review{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Email:  req.Email,
		Rating: req.Rating,
		Title:  req.Title,
		Body:   req.Body,
	}

	if err := s.repo.Create(ctx, review, codeHash); err != nil {
		return nil, "", false, fmt.Errorf("failed to create review: %w", err)
	}

	event := events.ReviewSubmittedEvent{
		ReviewID:    review.ID,
		Name:        review.Name,
		Email:       review.Email,
		VerifyURL:   s.verifyURL(review.ID, code),
		SubmittedAt: review.CreatedAt,
	}

	notified := true
	if err := s.eventBus.Publish(ctx, events.ReviewSubmitted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish review submitted event", "error", err, "review_id", review.ID)
		notified = false
	}

	return review, code, notified, nil
}

func (s *reviewService) Verify(ctx context.Context, id, code string) error {
	hash, status, err := s.repo.CodeHash(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return domain.ErrVerificationFailed
		}
		return fmt.Errorf("failed to load verification state: %w", err)
	}
	if status != domain.ReviewPending || hash == "" {
		return domain.ErrVerificationFailed
	}

	match, err := argon2id.ComparePasswordAndHash(code, hash)
	if err != nil || !match {
		return domain.ErrVerificationFailed
	}

	// The conditional update is the gate: a concurrent verify with the same
	// code loses the race here and fails like any replay.
	ok, err := s.repo.MarkVerified(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to mark review verified: %w", err)
	}
	if !ok {
		return domain.ErrVerificationFailed
	}
	return nil
}

func (s *reviewService) Publish(ctx context.Context, id, adminSecret string) error {
	if !s.gate.Authorize(adminSecret) {
		return domain.ErrUnauthorized
	}

	ok, err := s.repo.MarkPublished(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to publish review: %w", err)
	}
	if !ok {
		// Missing review and wrong status collapse into the same failure:
		// publication requires an existing, verified review.
		return domain.ErrInvalidState
	}

	s.invalidateAggregate(ctx)

	review, err := s.repo.GetByID(ctx, id)
	if err != nil || review == nil {
		logger.WarnContext(ctx, "Failed to reload review after publish", "error", err, "review_id", id)
		return nil
	}

	event := events.ReviewPublishedEvent{
		ReviewID: review.ID,
		Name:     review.Name,
		Email:    review.Email,
	}
	if review.PublishedAt != nil {
		event.PublishedAt = *review.PublishedAt
	}
	if err := s.eventBus.Publish(ctx, events.ReviewPublished, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish review published event", "error", err, "review_id", review.ID)
	}

	return nil
}

func (s *reviewService) ListPublished(ctx context.Context, limit, offset int) ([]domain.PublishedReview, error) {
	reviews, err := s.repo.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list published reviews: %w", err)
	}

	out := make([]domain.PublishedReview, 0, len(reviews))
	for _, rev := range reviews {
		pub := domain.PublishedReview{
			ID:          rev.ID,
			DisplayName: utils.DisplayName(rev.Name),
			Rating:      rev.Rating,
			Title:       rev.Title,
			Body:        rev.Body,
		}
		if rev.PublishedAt != nil {
			pub.PublishedAt = *rev.PublishedAt
		}
		out = append(out, pub)
	}
	return out, nil
}

func (s *reviewService) Aggregate(ctx context.Context) (*domain.ReviewSummary, error) {
	if s.cache != nil {
		var cached domain.ReviewSummary
		if hit, err := s.cache.GetJSON(ctx, aggregateCacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	count, average, err := s.repo.Aggregate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute aggregate rating: %w", err)
	}

	summary := &domain.ReviewSummary{Count: count, Average: average}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, aggregateCacheKey, summary, aggregateCacheTTL); err != nil {
			logger.WarnContext(ctx, "Failed to cache aggregate rating", "error", err)
		}
	}
	return summary, nil
}

func (s *reviewService) invalidateAggregate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, aggregateCacheKey); err != nil {
		logger.WarnContext(ctx, "Failed to invalidate aggregate cache", "error", err)
	}
}

func (s *reviewService) verifyURL(id, code string) string {
	return fmt.Sprintf("%s/reviews/verify?id=%s&code=%s",
		s.publicBaseURL, url.QueryEscape(id), url.QueryEscape(code))
}

func generateVerificationCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
