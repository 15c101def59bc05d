package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

type ViewStatsConfig struct {
	// CacheTTL bounds how stale persisted buckets may get before a read
	// triggers a refresh from the raw events. Zero disables refresh-on-read.
	CacheTTL   time.Duration
	VisitorKey string
}

type ViewStatsService struct {
	repo       ports.ViewStatsRepository
	guidebooks ports.GuidebookRepository
	log        *zap.Logger
	cacheTTL   time.Duration
	visitorKey string
	now        func() time.Time
}

func NewViewStatsService(repo ports.ViewStatsRepository, guidebooks ports.GuidebookRepository, log *zap.Logger, cfg ViewStatsConfig) *ViewStatsService {
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ViewStatsService{
		repo:       repo,
		guidebooks: guidebooks,
		log:        log,
		cacheTTL:   ttl,
		visitorKey: cfg.VisitorKey,
		now:        time.Now,
	}
}

func (s *ViewStatsService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// VisitorHash anonymizes a guest before their view is stored. Only the hash
// ever reaches Postgres.
func (s *ViewStatsService) VisitorHash(remoteIP, userAgent string) string {
	sum := sha256.Sum256([]byte(s.visitorKey + "|" + remoteIP + "|" + userAgent))
	return hex.EncodeToString(sum[:16])
}

// RecordView stores one raw guest view and bumps the guidebook's running
// counter. Failures are logged, never surfaced to the guest request.
func (s *ViewStatsService) RecordView(ctx context.Context, guidebookID uuid.UUID, visitorHash, referrer string) {
	event := domain.ViewEvent{
		GuidebookID: guidebookID,
		VisitorHash: visitorHash,
		OccurredAt:  s.now(),
	}
	if ref := strings.TrimSpace(referrer); ref != "" {
		event.Referrer = &ref
	}
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		s.log.Warn("record view event", zap.String("guidebook_id", guidebookID.String()), zap.Error(err))
		return
	}
	if err := s.guidebooks.IncrementViewCount(ctx, guidebookID); err != nil {
		s.log.Warn("bump view count", zap.String("guidebook_id", guidebookID.String()), zap.Error(err))
	}
}

// Stats returns the range buckets for the host dashboard, refreshing them
// from the raw events when they have gone stale.
func (s *ViewStatsService) Stats(ctx context.Context, ownerID, guidebookID uuid.UUID, forceRefresh bool) (*domain.GuidebookViewStats, error) {
	guidebook, err := s.ownedGuidebook(ctx, ownerID, guidebookID)
	if err != nil {
		return nil, err
	}

	ranges, latest, err := s.repo.GetBuckets(ctx, guidebookID)
	if err != nil {
		return nil, err
	}
	if forceRefresh || s.isStale(latest) || len(ranges) == 0 {
		if err := s.refresh(ctx, guidebookID); err != nil {
			if len(ranges) == 0 {
				return nil, err
			}
			s.log.Warn("view stats refresh failed, serving stale buckets",
				zap.String("guidebook_id", guidebookID.String()), zap.Error(err))
		} else if ranges, latest, err = s.repo.GetBuckets(ctx, guidebookID); err != nil {
			return nil, err
		}
	}

	result := &domain.GuidebookViewStats{
		GuidebookID: guidebook.ID,
		Title:       guidebook.Title,
		Ranges:      make(map[domain.ViewRange]domain.ViewStatValue, len(domain.ViewRangesOrdered)),
	}
	for _, key := range domain.ViewRangesOrdered {
		if val, ok := ranges[key]; ok {
			result.Ranges[key] = val
			continue
		}
		result.Ranges[key] = domain.ViewStatValue{BucketEnd: latest}
	}
	return result, nil
}

// Trending lists the owner's most viewed guidebooks for the given range.
func (s *ViewStatsService) Trending(ctx context.Context, ownerID uuid.UUID, rangeKey domain.ViewRange, limit int) ([]domain.GuidebookPopularity, error) {
	if rangeKey == "" {
		rangeKey = domain.ViewRange7d
	}
	if _, ok := rangeKey.Duration(); !ok {
		rangeKey = domain.ViewRange7d
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.repo.ListTop(ctx, ownerID, rangeKey, limit)
}

func (s *ViewStatsService) refresh(ctx context.Context, guidebookID uuid.UUID) error {
	now := s.now().UTC()
	buckets := make([]domain.ViewStatBucket, 0, len(domain.ViewRangesOrdered))
	for _, rangeKey := range domain.ViewRangesOrdered {
		var since time.Time
		if duration, _ := rangeKey.Duration(); duration > 0 {
			since = now.Add(-duration)
		}
		value, err := s.repo.AggregateRange(ctx, guidebookID, since)
		if err != nil {
			return err
		}
		buckets = append(buckets, domain.ViewStatBucket{
			GuidebookID:    guidebookID,
			RangeKey:       rangeKey,
			BucketEnd:      now,
			TotalViews:     value.TotalViews,
			UniqueVisitors: value.UniqueVisitors,
			UpdatedAt:      now,
		})
	}
	return s.repo.UpsertBuckets(ctx, buckets)
}

func (s *ViewStatsService) isStale(latest time.Time) bool {
	if latest.IsZero() {
		return true
	}
	return s.now().Sub(latest) > s.cacheTTL
}

func (s *ViewStatsService) ownedGuidebook(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.Guidebook, error) {
	guidebook, err := s.guidebooks.FindByID(ctx, guidebookID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrGuidebookNotFound
		}
		return nil, err
	}
	if guidebook.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return guidebook, nil
}
