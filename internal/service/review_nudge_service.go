package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

var (
	ErrNudgeNotConfigured = errors.New("review nudge mailer not configured")
	ErrReviewURLInvalid   = errors.New("review url invalid")
)

type nudgeSender interface {
	SendReviewNudge(ctx context.Context, email, guidebookTitle, reviewURL string) error
}

// ReviewNudgeService lets hosts preview the review email their guests get.
// The test nudge always goes to the host's own address.
type ReviewNudgeService struct {
	users      ports.UserRepository
	guidebooks ports.GuidebookRepository
	mailer     nudgeSender
}

func NewReviewNudgeService(users ports.UserRepository, guidebooks ports.GuidebookRepository, mailer nudgeSender) *ReviewNudgeService {
	return &ReviewNudgeService{
		users:      users,
		guidebooks: guidebooks,
		mailer:     mailer,
	}
}

func (s *ReviewNudgeService) SendTestNudge(ctx context.Context, ownerID, guidebookID uuid.UUID, reviewURL string) error {
	if s.mailer == nil {
		return ErrNudgeNotConfigured
	}

	gb, err := s.guidebooks.FindByID(ctx, guidebookID)
	if err != nil {
		if isNotFound(err) {
			return ErrGuidebookNotFound
		}
		return fmt.Errorf("load guidebook: %w", err)
	}
	if gb.DeletedAt != nil {
		return ErrGuidebookNotFound
	}
	if gb.OwnerID != ownerID {
		return ErrForbidden
	}

	target := strings.TrimSpace(reviewURL)
	if target == "" && gb.SourceURL != nil {
		target = *gb.SourceURL
	}
	if err := validateReviewURL(target); err != nil {
		return err
	}

	host, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load host: %w", err)
	}

	if err := s.mailer.SendReviewNudge(ctx, host.Email, gb.Title, target); err != nil {
		return fmt.Errorf("send nudge: %w", err)
	}
	return nil
}

func validateReviewURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: review url required", ErrReviewURLInvalid)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReviewURLInvalid, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: must be an absolute http(s) url", ErrReviewURLInvalid)
	}
	return nil
}
