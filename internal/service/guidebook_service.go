package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

var (
	ErrSlugTaken           = errors.New("slug already in use")
	ErrGuidebookValidation = errors.New("guidebook validation failed")
	ErrPlanLimitReached    = errors.New("plan guidebook limit reached")
)

var slugAllowed = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type GuidebookCreateInput struct {
	Title       string
	Slug        string
	Description *string
	Theme       string
}

type GuidebookService struct {
	guidebooks ports.GuidebookRepository
	blocks     ports.BlockRepository
	users      ports.UserRepository
	now        func() time.Time
}

func NewGuidebookService(guidebooks ports.GuidebookRepository, blocks ports.BlockRepository, users ports.UserRepository) *GuidebookService {
	return &GuidebookService{guidebooks: guidebooks, blocks: blocks, users: users, now: time.Now}
}

func (s *GuidebookService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *GuidebookService) Create(ctx context.Context, ownerID uuid.UUID, input GuidebookCreateInput) (*domain.Guidebook, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Slug = strings.TrimSpace(strings.ToLower(input.Slug))
	if err := s.validate(input.Title, input.Slug); err != nil {
		return nil, err
	}

	if err := s.checkPlanCeiling(ctx, ownerID); err != nil {
		return nil, err
	}

	theme := strings.TrimSpace(input.Theme)
	if theme == "" {
		theme = "default"
	}

	guidebook := &domain.Guidebook{
		OwnerID:     ownerID,
		Title:       input.Title,
		Slug:        input.Slug,
		Description: input.Description,
		Theme:       theme,
		Status:      domain.GuidebookStatusDraft,
	}
	created, err := s.guidebooks.Create(ctx, guidebook)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return created, nil
}

func (s *GuidebookService) Get(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.Guidebook, []domain.Block, error) {
	guidebook, err := s.owned(ctx, ownerID, guidebookID)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := s.blocks.ListByGuidebook(ctx, guidebookID)
	if err != nil {
		return nil, nil, err
	}
	return guidebook, blocks, nil
}

func (s *GuidebookService) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Guidebook, error) {
	return s.guidebooks.ListByOwner(ctx, ownerID)
}

func (s *GuidebookService) UpdateSettings(ctx context.Context, ownerID, guidebookID uuid.UUID, settings domain.GuidebookSettings) (*domain.Guidebook, error) {
	if _, err := s.owned(ctx, ownerID, guidebookID); err != nil {
		return nil, err
	}

	if settings.Title != nil {
		trimmed := strings.TrimSpace(*settings.Title)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: title is required", ErrGuidebookValidation)
		}
		settings.Title = &trimmed
	}
	if settings.Slug != nil {
		slug := strings.TrimSpace(strings.ToLower(*settings.Slug))
		if !slugAllowed.MatchString(slug) {
			return nil, fmt.Errorf("%w: slug must contain lowercase letters, numbers, and hyphens only", ErrGuidebookValidation)
		}
		settings.Slug = &slug
	}
	if settings.Status != nil {
		switch *settings.Status {
		case domain.GuidebookStatusDraft, domain.GuidebookStatusPublished, domain.GuidebookStatusArchived:
		default:
			return nil, fmt.Errorf("%w: status must be draft, published, or archived", ErrGuidebookValidation)
		}
	}

	updated, err := s.guidebooks.Update(ctx, guidebookID, settings)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		if isNotFound(err) {
			return nil, ErrGuidebookNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *GuidebookService) Publish(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.Guidebook, error) {
	status := domain.GuidebookStatusPublished
	return s.UpdateSettings(ctx, ownerID, guidebookID, domain.GuidebookSettings{Status: &status})
}

func (s *GuidebookService) Archive(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.Guidebook, error) {
	status := domain.GuidebookStatusArchived
	return s.UpdateSettings(ctx, ownerID, guidebookID, domain.GuidebookSettings{Status: &status})
}

// Delete soft-deletes the guidebook; its blocks go with it via the FK
// cascade when the row is eventually purged.
func (s *GuidebookService) Delete(ctx context.Context, ownerID, guidebookID uuid.UUID) error {
	if _, err := s.owned(ctx, ownerID, guidebookID); err != nil {
		return err
	}
	if err := s.guidebooks.Delete(ctx, guidebookID); err != nil {
		if isNotFound(err) {
			return ErrGuidebookNotFound
		}
		return err
	}
	return nil
}

// GetPublishedBySlug is the guest-facing lookup. Drafts and archived
// guidebooks are invisible to guests.
func (s *GuidebookService) GetPublishedBySlug(ctx context.Context, slug string) (*domain.Guidebook, []domain.Block, error) {
	guidebook, err := s.guidebooks.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, ErrGuidebookNotFound
	}
	if !guidebook.IsPublished() {
		return nil, nil, ErrGuidebookNotFound
	}
	blocks, err := s.blocks.ListByGuidebook(ctx, guidebook.ID)
	if err != nil {
		return nil, nil, err
	}
	return guidebook, blocks, nil
}

func (s *GuidebookService) CountView(ctx context.Context, guidebookID uuid.UUID) error {
	return s.guidebooks.IncrementViewCount(ctx, guidebookID)
}

func (s *GuidebookService) checkPlanCeiling(ctx context.Context, ownerID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	limits := domain.LimitsFor(user.Plan)
	if limits.GuidebookLimit < 0 {
		return nil
	}
	count, err := s.guidebooks.CountByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if count >= limits.GuidebookLimit {
		return fmt.Errorf("%w: %s plan allows %d", ErrPlanLimitReached, user.Plan, limits.GuidebookLimit)
	}
	return nil
}

func (s *GuidebookService) validate(title, slug string) error {
	var problems []string
	if title == "" {
		problems = append(problems, "title is required")
	}
	if slug == "" {
		problems = append(problems, "slug is required")
	} else if !slugAllowed.MatchString(slug) {
		problems = append(problems, "slug must contain lowercase letters, numbers, and hyphens only")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrGuidebookValidation, strings.Join(problems, "; "))
	}
	return nil
}

func (s *GuidebookService) owned(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.Guidebook, error) {
	guidebook, err := s.guidebooks.FindByID(ctx, guidebookID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrGuidebookNotFound
		}
		return nil, err
	}
	if guidebook.DeletedAt != nil {
		return nil, ErrGuidebookNotFound
	}
	if guidebook.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return guidebook, nil
}
