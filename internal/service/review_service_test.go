package service_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sessionworks/bookings/internal/domain"
	"github.com/sessionworks/bookings/internal/platform/auth"
	"github.com/sessionworks/bookings/internal/service"
)

// ---------- Mocks ----------

type fakeReviewsRepo struct {
	mu      sync.Mutex
	reviews map[string]*domain.Review
	hashes  map[string]string
}

func newFakeReviewsRepo() *fakeReviewsRepo {
	return &fakeReviewsRepo{
		reviews: make(map[string]*domain.Review),
		hashes:  make(map[string]string),
	}
}

func (f *fakeReviewsRepo) Create(_ context.Context, rev *domain.Review, codeHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev.Status = domain.ReviewPending
	rev.CreatedAt = time.Now()
	stored := *rev
	f.reviews[rev.ID] = &stored
	f.hashes[rev.ID] = codeHash
	return nil
}

func (f *fakeReviewsRepo) GetByID(_ context.Context, id string) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev, ok := f.reviews[id]
	if !ok {
		return nil, nil
	}
	cp := *rev
	return &cp, nil
}

func (f *fakeReviewsRepo) CodeHash(_ context.Context, id string) (string, domain.ReviewStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev, ok := f.reviews[id]
	if !ok {
		return "", "", domain.ErrNotFound
	}
	return f.hashes[id], rev.Status, nil
}

func (f *fakeReviewsRepo) MarkVerified(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev, ok := f.reviews[id]
	if !ok || rev.Status != domain.ReviewPending {
		return false, nil
	}
	now := time.Now()
	rev.Status = domain.ReviewVerified
	rev.VerifiedAt = &now
	delete(f.hashes, id)
	return true, nil
}

func (f *fakeReviewsRepo) MarkPublished(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev, ok := f.reviews[id]
	if !ok || rev.Status != domain.ReviewVerified {
		return false, nil
	}
	now := time.Now()
	rev.Status = domain.ReviewPublished
	rev.PublishedAt = &now
	return true, nil
}

func (f *fakeReviewsRepo) ListPublished(_ context.Context, limit, offset int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Review, 0, len(f.reviews))
	for _, rev := range f.reviews {
		if rev.Status == domain.ReviewPublished {
			out = append(out, *rev)
		}
	}
	return out, nil
}

func (f *fakeReviewsRepo) Aggregate(_ context.Context) (int, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count, sum int
	for _, rev := range f.reviews {
		if rev.Status == domain.ReviewPublished {
			count++
			sum += rev.Rating
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	avg := math.Round(float64(sum)/float64(count)*10) / 10
	return count, avg, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok, nil
}

func (c *fakeCache) SetJSON(_ context.Context, key string, _ any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = []byte("cached")
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.deletes++
	return nil
}

// ---------- Helpers ----------

const adminSecret = "correct horse battery staple"

func newReviewFixture(t *testing.T) (service.ReviewService, *fakeReviewsRepo, *fakeCache, *mockPublisher) {
	t.Helper()
	repo := newFakeReviewsRepo()
	cache := newFakeCache()
	bus := &mockPublisher{}
	gate := auth.NewGate(adminSecret)
	svc := service.NewReviewService(repo, gate, bus, cache, "https://sessions.example.com")
	return svc, repo, cache, bus
}

func validReviewReq(rating int) *domain.ReviewSubmitReq {
	return &domain.ReviewSubmitReq{
		Name:   "Jane Doe",
		Email:  "jane@example.com",
		Rating: rating,
		Title:  "Wonderful",
		Body:   "A thoughtful session, highly recommended to anyone on the fence.",
	}
}

// submitAndVerify pushes a review all the way to verified.
func submitAndVerify(t *testing.T, svc service.ReviewService, rating int) *domain.Review {
	t.Helper()
	rev, code, _, err := svc.Submit(context.Background(), validReviewReq(rating))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Verify(context.Background(), rev.ID, code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	return rev
}

// ---------- Tests ----------

func TestSubmitReviewValidation(t *testing.T) {
	svc, _, _, _ := newReviewFixture(t)

	cases := []struct {
		name   string
		mutate func(*domain.ReviewSubmitReq)
	}{
		{"rating too low", func(r *domain.ReviewSubmitReq) { r.Rating = 0 }},
		{"rating too high", func(r *domain.ReviewSubmitReq) { r.Rating = 6 }},
		{"body too short", func(r *domain.ReviewSubmitReq) { r.Body = "short" }},
		{"three urls", func(r *domain.ReviewSubmitReq) {
			r.Body = "see https://a.example http://b.example and www.c.example for details"
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validReviewReq(4)
			tc.mutate(req)
			_, _, _, err := svc.Submit(context.Background(), req)
			if !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSubmitReviewAllowsTwoURLs(t *testing.T) {
	svc, _, _, _ := newReviewFixture(t)

	req := validReviewReq(5)
	req.Body = "My portfolio is at https://a.example and my blog at www.b.example now."

	if _, _, _, err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("two urls must pass, got %v", err)
	}
}

func TestSubmitStoresHashNotCode(t *testing.T) {
	svc, repo, _, _ := newReviewFixture(t)

	rev, code, notified, err := svc.Submit(context.Background(), validReviewReq(5))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if code == "" {
		t.Fatal("expected a raw verification code")
	}
	if !notified {
		t.Error("notified = false, want true")
	}
	if rev.Status != domain.ReviewPending {
		t.Errorf("status = %q, want pending", rev.Status)
	}

	stored := repo.hashes[rev.ID]
	if stored == "" || stored == code || strings.Contains(stored, code) {
		t.Errorf("the raw code must never be stored, got %q", stored)
	}
}

func TestVerifyReviewSingleUse(t *testing.T) {
	svc, repo, _, _ := newReviewFixture(t)

	rev, code, _, err := svc.Submit(context.Background(), validReviewReq(4))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.Verify(context.Background(), rev.ID, code); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), rev.ID)
	if got.Status != domain.ReviewVerified {
		t.Errorf("status = %q, want verified", got.Status)
	}

	// Replaying the same code must fail once consumed.
	if err := svc.Verify(context.Background(), rev.ID, code); !errors.Is(err, domain.ErrVerificationFailed) {
		t.Errorf("expected ErrVerificationFailed on replay, got %v", err)
	}
}

func TestVerifyReviewFailureModesAreUniform(t *testing.T) {
	svc, _, _, _ := newReviewFixture(t)

	rev, code, _, err := svc.Submit(context.Background(), validReviewReq(4))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	cases := []struct {
		name string
		id   string
		code string
	}{
		{"unknown review", "no-such-id", code},
		{"wrong code", rev.ID, "deadbeef"},
		{"empty code", rev.ID, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Verify(context.Background(), tc.id, tc.code); !errors.Is(err, domain.ErrVerificationFailed) {
				t.Errorf("expected ErrVerificationFailed, got %v", err)
			}
		})
	}

	// The failed attempts above must not have burned the code.
	if err := svc.Verify(context.Background(), rev.ID, code); err != nil {
		t.Errorf("correct code should still work: %v", err)
	}
}

func TestPublishReviewRequiresVerifiedState(t *testing.T) {
	svc, _, _, _ := newReviewFixture(t)

	rev, _, _, err := svc.Submit(context.Background(), validReviewReq(4))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.Publish(context.Background(), rev.ID, adminSecret); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("publishing a pending review: expected ErrInvalidState, got %v", err)
	}
	// A missing review fails the same way as one in the wrong status.
	if err := svc.Publish(context.Background(), "no-such-id", adminSecret); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("publishing an unknown review: expected ErrInvalidState, got %v", err)
	}
}

func TestPublishReviewUnauthorized(t *testing.T) {
	svc, _, _, _ := newReviewFixture(t)
	rev := submitAndVerify(t, svc, 5)

	for _, secret := range []string{"", "wrong", adminSecret + " "} {
		if err := svc.Publish(context.Background(), rev.ID, secret); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("secret %q: expected ErrUnauthorized, got %v", secret, err)
		}
	}

	got, _ := svc.ListPublished(context.Background(), 20, 0)
	if len(got) != 0 {
		t.Errorf("nothing should be published, got %d", len(got))
	}
}

func TestPublishReviewInvalidatesAggregateCache(t *testing.T) {
	svc, _, cache, bus := newReviewFixture(t)
	rev := submitAndVerify(t, svc, 5)

	// Warm the cache.
	if _, err := svc.Aggregate(context.Background()); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(cache.entries) == 0 {
		t.Fatal("expected the aggregate to be cached")
	}

	if err := svc.Publish(context.Background(), rev.ID, adminSecret); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if cache.deletes == 0 {
		t.Error("publish must invalidate the aggregate cache")
	}

	foundPublished := false
	for _, s := range bus.subjects {
		if s == "review.published" {
			foundPublished = true
		}
	}
	if !foundPublished {
		t.Error("expected a review.published event")
	}
}

func TestAggregateRounding(t *testing.T) {
	svc, _, _, _ := newReviewFixture(t)

	for _, rating := range []int{5, 5, 4, 3} {
		rev := submitAndVerify(t, svc, rating)
		if err := svc.Publish(context.Background(), rev.ID, adminSecret); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	summary, err := svc.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if summary.Count != 4 {
		t.Errorf("count = %d, want 4", summary.Count)
	}
	// 17/4 = 4.25 rounds to 4.3 at one decimal.
	if summary.Average != 4.3 {
		t.Errorf("average = %v, want 4.3", summary.Average)
	}
}

func TestAggregateEmpty(t *testing.T) {
	svc, _, _, _ := newReviewFixture(t)

	summary, err := svc.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if summary.Count != 0 || summary.Average != 0 {
		t.Errorf("got count=%d average=%v, want zeros", summary.Count, summary.Average)
	}
}

func TestListPublishedMasksNames(t *testing.T) {
	svc, _, _, _ := newReviewFixture(t)

	rev := submitAndVerify(t, svc, 5)
	if err := svc.Publish(context.Background(), rev.ID, adminSecret); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, err := svc.ListPublished(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].DisplayName != "Jane D." {
		t.Errorf("display name = %q, want %q", got[0].DisplayName, "Jane D.")
	}
}
