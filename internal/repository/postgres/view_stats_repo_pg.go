package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

type ViewStatsRepository struct {
	db *sqlx.DB
}

func NewViewStatsRepo(db *sqlx.DB) *ViewStatsRepository {
	return &ViewStatsRepository{db: db}
}

func (r *ViewStatsRepository) InsertEvent(ctx context.Context, event domain.ViewEvent) error {
	const query = `
		INSERT INTO guidebook_view_events (guidebook_id, visitor_hash, referrer, occurred_at)
		VALUES ($1, $2, $3, $4)
	`
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, event.GuidebookID, event.VisitorHash, nullString(event.Referrer), occurredAt)
	return err
}

func (r *ViewStatsRepository) AggregateRange(ctx context.Context, guidebookID uuid.UUID, since time.Time) (domain.ViewStatValue, error) {
	query := `
		SELECT COUNT(*)::bigint AS total_views,
		       COUNT(DISTINCT visitor_hash)::int AS unique_visitors
		FROM guidebook_view_events
		WHERE guidebook_id = $1
	`
	args := []any{guidebookID}
	if !since.IsZero() {
		query += ` AND occurred_at >= $2`
		args = append(args, since)
	}

	var row struct {
		TotalViews     int64 `db:"total_views"`
		UniqueVisitors int   `db:"unique_visitors"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return domain.ViewStatValue{}, err
	}
	return domain.ViewStatValue{
		TotalViews:     row.TotalViews,
		UniqueVisitors: row.UniqueVisitors,
	}, nil
}

func (r *ViewStatsRepository) UpsertBuckets(ctx context.Context, buckets []domain.ViewStatBucket) error {
	if len(buckets) == 0 {
		return nil
	}

	const query = `
		INSERT INTO guidebook_view_stats (guidebook_id, range_key, bucket_end, total_views, unique_visitors, updated_at)
		VALUES (:guidebook_id, :range_key, :bucket_end, :total_views, :unique_visitors, :updated_at)
		ON CONFLICT (guidebook_id, range_key) DO UPDATE
		SET bucket_end = EXCLUDED.bucket_end,
		    total_views = EXCLUDED.total_views,
		    unique_visitors = EXCLUDED.unique_visitors,
		    updated_at = EXCLUDED.updated_at
	`
	for _, bucket := range buckets {
		if _, err := r.db.NamedExecContext(ctx, query, bucket); err != nil {
			return err
		}
	}
	return nil
}

func (r *ViewStatsRepository) GetBuckets(ctx context.Context, guidebookID uuid.UUID) (map[domain.ViewRange]domain.ViewStatValue, time.Time, error) {
	const query = `
		SELECT range_key, bucket_end, total_views, unique_visitors, updated_at
		FROM guidebook_view_stats
		WHERE guidebook_id = $1
	`
	var rows []struct {
		RangeKey       domain.ViewRange `db:"range_key"`
		BucketEnd      time.Time        `db:"bucket_end"`
		TotalViews     int64            `db:"total_views"`
		UniqueVisitors int              `db:"unique_visitors"`
		UpdatedAt      time.Time        `db:"updated_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, guidebookID); err != nil {
		return nil, time.Time{}, err
	}

	stats := make(map[domain.ViewRange]domain.ViewStatValue, len(rows))
	var latest time.Time
	for _, row := range rows {
		stats[row.RangeKey] = domain.ViewStatValue{
			TotalViews:     row.TotalViews,
			UniqueVisitors: row.UniqueVisitors,
			BucketEnd:      row.BucketEnd,
		}
		if row.UpdatedAt.After(latest) {
			latest = row.UpdatedAt
		}
	}
	return stats, latest, nil
}

func (r *ViewStatsRepository) ListTop(ctx context.Context, ownerID uuid.UUID, rangeKey domain.ViewRange, limit int) ([]domain.GuidebookPopularity, error) {
	const query = `
		SELECT g.id AS guidebook_id, g.title, g.slug,
		       COALESCE(s.total_views, 0)::bigint AS total_views
		FROM guidebooks g
		LEFT JOIN guidebook_view_stats s
		       ON s.guidebook_id = g.id AND s.range_key = $2
		WHERE g.owner_id = $1 AND g.deleted_at IS NULL
		ORDER BY total_views DESC, g.title ASC
		LIMIT $3
	`
	records := make([]domain.GuidebookPopularity, 0)
	if err := r.db.SelectContext(ctx, &records, query, ownerID, rangeKey, limit); err != nil {
		return nil, err
	}
	return records, nil
}

var _ ports.ViewStatsRepository = (*ViewStatsRepository)(nil)
