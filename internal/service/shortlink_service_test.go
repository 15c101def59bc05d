package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type fakeShortLinkRepo struct {
	byCode      map[string]*domain.ShortLink
	byGuidebook map[uuid.UUID]string
	buckets     map[string]map[time.Time]int64
	recordErr   error
}

func newFakeShortLinkRepo() *fakeShortLinkRepo {
	return &fakeShortLinkRepo{
		byCode:      map[string]*domain.ShortLink{},
		byGuidebook: map[uuid.UUID]string{},
		buckets:     map[string]map[time.Time]int64{},
	}
}

func (r *fakeShortLinkRepo) Create(_ context.Context, link *domain.ShortLink) (*domain.ShortLink, error) {
	if _, taken := r.byCode[link.Code]; taken {
		return nil, errUnique
	}
	clone := *link
	clone.CreatedAt = time.Now()
	r.byCode[clone.Code] = &clone
	r.byGuidebook[clone.GuidebookID] = clone.Code
	out := clone
	return &out, nil
}

func (r *fakeShortLinkRepo) FindByCode(_ context.Context, code string) (*domain.ShortLink, error) {
	link, ok := r.byCode[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *link
	return &out, nil
}

func (r *fakeShortLinkRepo) FindByGuidebook(_ context.Context, guidebookID uuid.UUID) (*domain.ShortLink, error) {
	code, ok := r.byGuidebook[guidebookID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r.FindByCode(context.Background(), code)
}

func (r *fakeShortLinkRepo) RecordClicks(_ context.Context, code string, day time.Time, clicks int64) error {
	if r.recordErr != nil {
		return r.recordErr
	}
	link, ok := r.byCode[code]
	if !ok {
		return sql.ErrNoRows
	}
	link.ClickCount += clicks
	if r.buckets[code] == nil {
		r.buckets[code] = map[time.Time]int64{}
	}
	r.buckets[code][day] += clicks
	return nil
}

func (r *fakeShortLinkRepo) ListClickBuckets(_ context.Context, code string, since time.Time) ([]domain.ShortLinkClickBucket, error) {
	var out []domain.ShortLinkClickBucket
	for day, clicks := range r.buckets[code] {
		if day.Before(since) {
			continue
		}
		out = append(out, domain.ShortLinkClickBucket{Code: code, Day: day, Clicks: clicks})
	}
	return out, nil
}

type fakeClickCounter struct {
	counts map[string]int64
	err    error
}

func newFakeClickCounter() *fakeClickCounter {
	return &fakeClickCounter{counts: map[string]int64{}}
}

func (c *fakeClickCounter) Increment(_ context.Context, key string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *fakeClickCounter) Drain(_ context.Context, key string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	count := c.counts[key]
	delete(c.counts, key)
	return count, nil
}

func newShortLinkFixture(t *testing.T) (*ShortLinkService, *fakeShortLinkRepo, *fakeClickCounter, *fakeGuidebookRepo, uuid.UUID, *domain.Guidebook) {
	t.Helper()
	guidebooks := newFakeGuidebookRepo()
	links := newFakeShortLinkRepo()
	clicks := newFakeClickCounter()
	ownerID := uuid.New()
	guidebook := seedGuidebook(t, guidebooks, ownerID)
	published := domain.GuidebookStatusPublished
	if _, err := guidebooks.Update(context.Background(), guidebook.ID, domain.GuidebookSettings{Status: &published}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	svc := NewShortLinkService(links, guidebooks, clicks, ShortLinkConfig{PublicBaseURL: "https://roomy.test/"})
	return svc, links, clicks, guidebooks, ownerID, guidebook
}

func TestShortLinkEnsure(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, ownerID, guidebook := newShortLinkFixture(t)

	first, err := svc.EnsureLink(ctx, ownerID, guidebook.ID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(first.Code) != shortCodeLength {
		t.Fatalf("expected %d-char code, got %q", shortCodeLength, first.Code)
	}

	second, err := svc.EnsureLink(ctx, ownerID, guidebook.ID)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if second.Code != first.Code {
		t.Fatalf("expected stable code, got %q then %q", first.Code, second.Code)
	}

	if _, err := svc.EnsureLink(ctx, uuid.New(), guidebook.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
}

func TestShortLinkResolveAndFlush(t *testing.T) {
	ctx := context.Background()
	svc, links, clicks, _, ownerID, guidebook := newShortLinkFixture(t)

	link, err := svc.EnsureLink(ctx, ownerID, guidebook.ID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	for i := 0; i < 3; i++ {
		resolution, err := svc.Resolve(ctx, link.Code)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if resolution.Guidebook.ID != guidebook.ID {
			t.Fatal("resolved wrong guidebook")
		}
	}
	if clicks.counts[link.Code] != 3 {
		t.Fatalf("expected 3 hot clicks, got %d", clicks.counts[link.Code])
	}

	if err := svc.FlushClicks(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	stored, err := links.FindByCode(ctx, link.Code)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.ClickCount != 3 {
		t.Fatalf("expected 3 persisted clicks, got %d", stored.ClickCount)
	}
	if clicks.counts[link.Code] != 0 {
		t.Fatalf("expected drained counter, got %d", clicks.counts[link.Code])
	}

	// second flush with nothing pending is a no-op
	if err := svc.FlushClicks(ctx); err != nil {
		t.Fatalf("idle flush: %v", err)
	}
	stored, _ = links.FindByCode(ctx, link.Code)
	if stored.ClickCount != 3 {
		t.Fatalf("idle flush changed count to %d", stored.ClickCount)
	}

	if _, err := svc.Resolve(ctx, "missing0"); !errors.Is(err, ErrShortLinkNotFound) {
		t.Fatalf("expected ErrShortLinkNotFound, got %v", err)
	}
}

func TestShortLinkFlushRetainsUnpersistedClicks(t *testing.T) {
	ctx := context.Background()
	svc, links, clicks, _, ownerID, guidebook := newShortLinkFixture(t)

	link, err := svc.EnsureLink(ctx, ownerID, guidebook.ID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Resolve(ctx, link.Code); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}

	links.recordErr = errors.New("database unavailable")
	if err := svc.FlushClicks(ctx); err == nil {
		t.Fatal("expected flush error while persistence is down")
	}
	if clicks.counts[link.Code] != 0 {
		t.Fatalf("expected drained hot counter, got %d", clicks.counts[link.Code])
	}
	stored, _ := links.FindByCode(ctx, link.Code)
	if stored.ClickCount != 0 {
		t.Fatalf("expected nothing persisted yet, got %d", stored.ClickCount)
	}

	links.recordErr = nil
	if err := svc.FlushClicks(ctx); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	stored, _ = links.FindByCode(ctx, link.Code)
	if stored.ClickCount != 3 {
		t.Fatalf("expected drained clicks to survive the failed flush, got %d", stored.ClickCount)
	}
}

func TestShortLinkUnpublishedHidden(t *testing.T) {
	ctx := context.Background()
	svc, _, _, guidebooks, ownerID, guidebook := newShortLinkFixture(t)

	link, err := svc.EnsureLink(ctx, ownerID, guidebook.ID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	archived := domain.GuidebookStatusArchived
	if _, err := guidebooks.Update(ctx, guidebook.ID, domain.GuidebookSettings{Status: &archived}); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := svc.Resolve(ctx, link.Code); !errors.Is(err, ErrShortLinkNotFound) {
		t.Fatalf("expected archived guidebook to resolve as not found, got %v", err)
	}
}

func TestShortLinkQRCode(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, ownerID, guidebook := newShortLinkFixture(t)

	png, err := svc.QRCode(ctx, ownerID, guidebook.ID)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("expected a PNG payload")
	}
}
