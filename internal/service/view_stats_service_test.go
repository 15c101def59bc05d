package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type fakeViewStatsRepo struct {
	events  []domain.ViewEvent
	buckets map[uuid.UUID]map[domain.ViewRange]domain.ViewStatBucket

	aggregateCalls int
	insertErr      error
}

func newFakeViewStatsRepo() *fakeViewStatsRepo {
	return &fakeViewStatsRepo{buckets: map[uuid.UUID]map[domain.ViewRange]domain.ViewStatBucket{}}
}

func (r *fakeViewStatsRepo) InsertEvent(_ context.Context, event domain.ViewEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeViewStatsRepo) AggregateRange(_ context.Context, guidebookID uuid.UUID, since time.Time) (domain.ViewStatValue, error) {
	r.aggregateCalls++
	visitors := map[string]struct{}{}
	var total int64
	for _, event := range r.events {
		if event.GuidebookID != guidebookID {
			continue
		}
		if !since.IsZero() && event.OccurredAt.Before(since) {
			continue
		}
		total++
		visitors[event.VisitorHash] = struct{}{}
	}
	return domain.ViewStatValue{TotalViews: total, UniqueVisitors: len(visitors)}, nil
}

func (r *fakeViewStatsRepo) UpsertBuckets(_ context.Context, buckets []domain.ViewStatBucket) error {
	for _, bucket := range buckets {
		if r.buckets[bucket.GuidebookID] == nil {
			r.buckets[bucket.GuidebookID] = map[domain.ViewRange]domain.ViewStatBucket{}
		}
		r.buckets[bucket.GuidebookID][bucket.RangeKey] = bucket
	}
	return nil
}

func (r *fakeViewStatsRepo) GetBuckets(_ context.Context, guidebookID uuid.UUID) (map[domain.ViewRange]domain.ViewStatValue, time.Time, error) {
	out := map[domain.ViewRange]domain.ViewStatValue{}
	var latest time.Time
	for key, bucket := range r.buckets[guidebookID] {
		out[key] = domain.ViewStatValue{
			TotalViews:     bucket.TotalViews,
			UniqueVisitors: bucket.UniqueVisitors,
			BucketEnd:      bucket.BucketEnd,
		}
		if bucket.UpdatedAt.After(latest) {
			latest = bucket.UpdatedAt
		}
	}
	return out, latest, nil
}

func (r *fakeViewStatsRepo) ListTop(_ context.Context, _ uuid.UUID, rangeKey domain.ViewRange, limit int) ([]domain.GuidebookPopularity, error) {
	var out []domain.GuidebookPopularity
	for id, ranges := range r.buckets {
		if bucket, ok := ranges[rangeKey]; ok {
			out = append(out, domain.GuidebookPopularity{GuidebookID: id, TotalViews: bucket.TotalViews})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalViews > out[j].TotalViews })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestViewStatsRecordAndRefresh(t *testing.T) {
	ctx := context.Background()
	guidebooks := newFakeGuidebookRepo()
	repo := newFakeViewStatsRepo()
	ownerID := uuid.New()
	guidebook := seedGuidebook(t, guidebooks, ownerID)
	svc := NewViewStatsService(repo, guidebooks, nil, ViewStatsConfig{CacheTTL: time.Minute, VisitorKey: "k"})

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	svc.SetClock(func() time.Time { return clock })

	svc.RecordView(ctx, guidebook.ID, svc.VisitorHash("1.2.3.4", "safari"), "https://instagram.com")
	svc.RecordView(ctx, guidebook.ID, svc.VisitorHash("1.2.3.4", "safari"), "")
	svc.RecordView(ctx, guidebook.ID, svc.VisitorHash("5.6.7.8", "chrome"), "")

	stats, err := svc.Stats(ctx, ownerID, guidebook.ID, false)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	allRange := stats.Ranges[domain.ViewRangeAll]
	if allRange.TotalViews != 3 {
		t.Fatalf("expected 3 total views, got %d", allRange.TotalViews)
	}
	if allRange.UniqueVisitors != 2 {
		t.Fatalf("expected 2 unique visitors, got %d", allRange.UniqueVisitors)
	}
	if len(stats.Ranges) != len(domain.ViewRangesOrdered) {
		t.Fatalf("expected every range populated, got %d", len(stats.Ranges))
	}

	stored, _ := guidebooks.FindByID(ctx, guidebook.ID)
	if stored.ViewCount != 3 {
		t.Fatalf("expected running view_count 3, got %d", stored.ViewCount)
	}

	t.Run("fresh buckets are served without re-aggregating", func(t *testing.T) {
		calls := repo.aggregateCalls
		if _, err := svc.Stats(ctx, ownerID, guidebook.ID, false); err != nil {
			t.Fatalf("stats: %v", err)
		}
		if repo.aggregateCalls != calls {
			t.Fatal("expected cached buckets, but refresh ran")
		}
	})

	t.Run("stale buckets trigger a refresh", func(t *testing.T) {
		clock = clock.Add(2 * time.Minute)
		calls := repo.aggregateCalls
		if _, err := svc.Stats(ctx, ownerID, guidebook.ID, false); err != nil {
			t.Fatalf("stats: %v", err)
		}
		if repo.aggregateCalls == calls {
			t.Fatal("expected stale buckets to refresh")
		}
	})

	t.Run("24h window excludes old events", func(t *testing.T) {
		clock = clock.Add(48 * time.Hour)
		stats, err := svc.Stats(ctx, ownerID, guidebook.ID, true)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.Ranges[domain.ViewRange24h].TotalViews != 0 {
			t.Fatalf("expected 0 views in 24h window, got %d", stats.Ranges[domain.ViewRange24h].TotalViews)
		}
		if stats.Ranges[domain.ViewRangeAll].TotalViews != 3 {
			t.Fatalf("expected all-time to keep 3, got %d", stats.Ranges[domain.ViewRangeAll].TotalViews)
		}
	})

	t.Run("stranger cannot read stats", func(t *testing.T) {
		if _, err := svc.Stats(ctx, uuid.New(), guidebook.ID, false); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestViewStatsVisitorHash(t *testing.T) {
	svc := NewViewStatsService(newFakeViewStatsRepo(), newFakeGuidebookRepo(), nil, ViewStatsConfig{VisitorKey: "k"})

	a := svc.VisitorHash("1.2.3.4", "safari")
	if a != svc.VisitorHash("1.2.3.4", "safari") {
		t.Fatal("expected stable hash for same visitor")
	}
	if a == svc.VisitorHash("5.6.7.8", "safari") {
		t.Fatal("expected distinct hash for distinct ip")
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
}

func TestViewStatsTrending(t *testing.T) {
	ctx := context.Background()
	guidebooks := newFakeGuidebookRepo()
	repo := newFakeViewStatsRepo()
	ownerID := uuid.New()
	svc := NewViewStatsService(repo, guidebooks, nil, ViewStatsConfig{})

	busy := seedGuidebook(t, guidebooks, ownerID)
	quiet := seedGuidebook(t, guidebooks, ownerID)
	for i := 0; i < 5; i++ {
		svc.RecordView(ctx, busy.ID, svc.VisitorHash("1.1.1.1", "x"), "")
	}
	svc.RecordView(ctx, quiet.ID, svc.VisitorHash("2.2.2.2", "x"), "")

	// populate buckets
	if _, err := svc.Stats(ctx, ownerID, busy.ID, true); err != nil {
		t.Fatalf("stats busy: %v", err)
	}
	if _, err := svc.Stats(ctx, ownerID, quiet.ID, true); err != nil {
		t.Fatalf("stats quiet: %v", err)
	}

	top, err := svc.Trending(ctx, ownerID, domain.ViewRange7d, 10)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(top) != 2 || top[0].GuidebookID != busy.ID {
		t.Fatalf("expected busy guidebook first, got %+v", top)
	}

	if _, err := svc.Trending(ctx, ownerID, domain.ViewRange("bogus"), 0); err != nil {
		t.Fatalf("expected bogus range to fall back, got %v", err)
	}
}
