package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

type ShortLinkRepository struct {
	db *sqlx.DB
}

func NewShortLinkRepo(db *sqlx.DB) *ShortLinkRepository {
	return &ShortLinkRepository{db: db}
}

func (r *ShortLinkRepository) Create(ctx context.Context, link *domain.ShortLink) (*domain.ShortLink, error) {
	const query = `
		INSERT INTO short_links (code, guidebook_id)
		VALUES ($1, $2)
		RETURNING code, guidebook_id, click_count, created_at
	`
	var created domain.ShortLink
	if err := r.db.GetContext(ctx, &created, query, link.Code, link.GuidebookID); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *ShortLinkRepository) FindByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	const query = `
		SELECT code, guidebook_id, click_count, created_at
		FROM short_links
		WHERE code = $1
	`
	var link domain.ShortLink
	if err := r.db.GetContext(ctx, &link, query, code); err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *ShortLinkRepository) FindByGuidebook(ctx context.Context, guidebookID uuid.UUID) (*domain.ShortLink, error) {
	const query = `
		SELECT code, guidebook_id, click_count, created_at
		FROM short_links
		WHERE guidebook_id = $1
	`
	var link domain.ShortLink
	if err := r.db.GetContext(ctx, &link, query, guidebookID); err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *ShortLinkRepository) RecordClicks(ctx context.Context, code string, day time.Time, clicks int64) error {
	if clicks <= 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE short_links SET click_count = click_count + $2 WHERE code = $1`,
		code, clicks); err != nil {
		return err
	}

	const bucketQuery = `
		INSERT INTO short_link_clicks (code, day, clicks)
		VALUES ($1, $2, $3)
		ON CONFLICT (code, day) DO UPDATE SET clicks = short_link_clicks.clicks + EXCLUDED.clicks
	`
	if _, err := tx.ExecContext(ctx, bucketQuery, code, day.UTC().Truncate(24*time.Hour), clicks); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ShortLinkRepository) ListClickBuckets(ctx context.Context, code string, since time.Time) ([]domain.ShortLinkClickBucket, error) {
	const query = `
		SELECT code, day, clicks
		FROM short_link_clicks
		WHERE code = $1 AND day >= $2
		ORDER BY day ASC
	`
	buckets := make([]domain.ShortLinkClickBucket, 0)
	if err := r.db.SelectContext(ctx, &buckets, query, code, since.UTC().Truncate(24*time.Hour)); err != nil {
		return nil, err
	}
	return buckets, nil
}

var _ ports.ShortLinkRepository = (*ShortLinkRepository)(nil)
