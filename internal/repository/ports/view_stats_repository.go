package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type ViewStatsRepository interface {
	InsertEvent(ctx context.Context, event domain.ViewEvent) error
	AggregateRange(ctx context.Context, guidebookID uuid.UUID, since time.Time) (domain.ViewStatValue, error)
	UpsertBuckets(ctx context.Context, buckets []domain.ViewStatBucket) error
	GetBuckets(ctx context.Context, guidebookID uuid.UUID) (map[domain.ViewRange]domain.ViewStatValue, time.Time, error)
	ListTop(ctx context.Context, ownerID uuid.UUID, rangeKey domain.ViewRange, limit int) ([]domain.GuidebookPopularity, error)
}
