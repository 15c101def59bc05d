package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type ShortLinkRepository interface {
	Create(ctx context.Context, link *domain.ShortLink) (*domain.ShortLink, error)
	FindByCode(ctx context.Context, code string) (*domain.ShortLink, error)
	FindByGuidebook(ctx context.Context, guidebookID uuid.UUID) (*domain.ShortLink, error)
	RecordClicks(ctx context.Context, code string, day time.Time, clicks int64) error
	ListClickBuckets(ctx context.Context, code string, since time.Time) ([]domain.ShortLinkClickBucket, error)
}

// ClickCounter is the hot path for click/view counting; flushed into the
// repository by the stats service.
type ClickCounter interface {
	Increment(ctx context.Context, key string) (int64, error)
	Drain(ctx context.Context, key string) (int64, error)
}
