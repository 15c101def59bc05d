package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

const guidebookColumns = `id, owner_id, title, slug, description, theme, status,
	       view_count, source_url, created_at, updated_at, deleted_at`

type GuidebookRepository struct {
	db *sqlx.DB
}

func NewGuidebookRepo(db *sqlx.DB) *GuidebookRepository {
	return &GuidebookRepository{db: db}
}

func (r *GuidebookRepository) Create(ctx context.Context, guidebook *domain.Guidebook) (*domain.Guidebook, error) {
	const query = `
		INSERT INTO guidebooks (owner_id, title, slug, description, theme, status, source_url)
		VALUES (:owner_id, :title, :slug, :description, :theme, :status, :source_url)
		RETURNING ` + guidebookColumns

	args := map[string]any{
		"owner_id":    guidebook.OwnerID,
		"title":       guidebook.Title,
		"slug":        guidebook.Slug,
		"description": nullString(guidebook.Description),
		"theme":       guidebook.Theme,
		"status":      guidebook.Status,
		"source_url":  nullString(guidebook.SourceURL),
	}

	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		var created domain.Guidebook
		if err = rows.StructScan(&created); err != nil {
			return nil, err
		}
		return &created, nil
	}
	return nil, sql.ErrNoRows
}

func (r *GuidebookRepository) Update(ctx context.Context, id uuid.UUID, settings domain.GuidebookSettings) (*domain.Guidebook, error) {
	setParts := []string{"updated_at = NOW()"}
	args := []any{}
	idx := 1

	if settings.Title != nil {
		setParts = append(setParts, fmt.Sprintf("title = $%d", idx))
		args = append(args, strings.TrimSpace(*settings.Title))
		idx++
	}
	if settings.Slug != nil {
		setParts = append(setParts, fmt.Sprintf("slug = $%d", idx))
		args = append(args, strings.TrimSpace(*settings.Slug))
		idx++
	}
	if settings.Description != nil {
		setParts = append(setParts, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullString(settings.Description))
		idx++
	}
	if settings.Theme != nil {
		setParts = append(setParts, fmt.Sprintf("theme = $%d", idx))
		args = append(args, strings.TrimSpace(*settings.Theme))
		idx++
	}
	if settings.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", idx))
		args = append(args, *settings.Status)
		idx++
	}

	query := fmt.Sprintf(`
		UPDATE guidebooks
		SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, strings.Join(setParts, ", "), idx, guidebookColumns)
	args = append(args, id)

	var updated domain.Guidebook
	if err := r.db.GetContext(ctx, &updated, query, args...); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *GuidebookRepository) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE guidebooks SET updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *GuidebookRepository) SetSourceURL(ctx context.Context, id uuid.UUID, sourceURL string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE guidebooks SET source_url = $1, updated_at = NOW() WHERE id = $2`, sourceURL, id)
	return err
}

func (r *GuidebookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE guidebooks SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *GuidebookRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Guidebook, error) {
	const query = `
		SELECT ` + guidebookColumns + `
		FROM guidebooks
		WHERE id = $1 AND deleted_at IS NULL
	`
	var guidebook domain.Guidebook
	if err := r.db.GetContext(ctx, &guidebook, query, id); err != nil {
		return nil, err
	}
	return &guidebook, nil
}

func (r *GuidebookRepository) FindBySlug(ctx context.Context, slug string) (*domain.Guidebook, error) {
	const query = `
		SELECT ` + guidebookColumns + `
		FROM guidebooks
		WHERE slug = $1 AND deleted_at IS NULL
	`
	var guidebook domain.Guidebook
	if err := r.db.GetContext(ctx, &guidebook, query, slug); err != nil {
		return nil, err
	}
	return &guidebook, nil
}

func (r *GuidebookRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Guidebook, error) {
	const query = `
		SELECT ` + guidebookColumns + `
		FROM guidebooks
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
	`
	guidebooks := make([]domain.Guidebook, 0)
	if err := r.db.SelectContext(ctx, &guidebooks, query, ownerID); err != nil {
		return nil, err
	}
	return guidebooks, nil
}

func (r *GuidebookRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM guidebooks WHERE owner_id = $1 AND deleted_at IS NULL`, ownerID)
	return count, err
}

func (r *GuidebookRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE guidebooks SET view_count = view_count + 1 WHERE id = $1`, id)
	return err
}

func nullString(ptr *string) sql.NullString {
	if ptr == nil {
		return sql.NullString{Valid: false}
	}
	v := strings.TrimSpace(*ptr)
	if v == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: v, Valid: true}
}

var _ ports.GuidebookRepository = (*GuidebookRepository)(nil)
