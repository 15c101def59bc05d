package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
	"github.com/roomyhq/roomy-server/internal/util"
)

var (
	ErrShortLinkNotFound = errors.New("short link not found")
	ErrShortCodeExhaust  = errors.New("could not allocate a unique short code")
)

const (
	shortCodeLength = 7
	qrImageSize     = 512
)

type ShortLinkConfig struct {
	// PublicBaseURL is the externally visible origin, e.g. https://roomy.app.
	PublicBaseURL string
}

type ShortLinkResolution struct {
	Link      *domain.ShortLink
	Guidebook *domain.Guidebook
}

type ShortLinkService struct {
	links      ports.ShortLinkRepository
	guidebooks ports.GuidebookRepository
	clicks     ports.ClickCounter
	publicBase string
	now        func() time.Time

	mu      sync.Mutex
	dirty   map[string]struct{}
	pending map[string]int64
}

func NewShortLinkService(links ports.ShortLinkRepository, guidebooks ports.GuidebookRepository, clicks ports.ClickCounter, cfg ShortLinkConfig) *ShortLinkService {
	return &ShortLinkService{
		links:      links,
		guidebooks: guidebooks,
		clicks:     clicks,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:        time.Now,
		dirty:      map[string]struct{}{},
		pending:    map[string]int64{},
	}
}

func (s *ShortLinkService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// EnsureLink returns the guidebook's short link, creating one on first use.
func (s *ShortLinkService) EnsureLink(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.ShortLink, error) {
	if _, err := s.ownedGuidebook(ctx, ownerID, guidebookID); err != nil {
		return nil, err
	}

	link, err := s.links.FindByGuidebook(ctx, guidebookID)
	if err == nil {
		return link, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := util.GenerateShortCode(shortCodeLength)
		if err != nil {
			return nil, err
		}
		created, err := s.links.Create(ctx, &domain.ShortLink{Code: code, GuidebookID: guidebookID})
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return created, nil
	}
	return nil, ErrShortCodeExhaust
}

// ShortURL is the externally shareable form of a code.
func (s *ShortLinkService) ShortURL(code string) string {
	return s.publicBase + "/s/" + code
}

// Resolve looks up a code for redirecting and counts the click in the hot
// counter. Click persistence happens on the next flush, not on this path.
func (s *ShortLinkService) Resolve(ctx context.Context, code string) (*ShortLinkResolution, error) {
	link, err := s.links.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShortLinkNotFound
		}
		return nil, err
	}
	guidebook, err := s.guidebooks.FindByID(ctx, link.GuidebookID)
	if err != nil || !guidebook.IsPublished() {
		return nil, ErrShortLinkNotFound
	}

	if s.clicks != nil {
		if _, err := s.clicks.Increment(ctx, link.Code); err == nil {
			s.markDirty(link.Code)
		}
	}
	return &ShortLinkResolution{Link: link, Guidebook: guidebook}, nil
}

// QRCode renders the short URL as a PNG, creating the link if needed.
func (s *ShortLinkService) QRCode(ctx context.Context, ownerID, guidebookID uuid.UUID) ([]byte, error) {
	link, err := s.EnsureLink(ctx, ownerID, guidebookID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(s.ShortURL(link.Code), qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// FlushClicks drains the hot counters accumulated since the last flush into
// Postgres (running total + per-day buckets). Meant to run on a ticker.
func (s *ShortLinkService) FlushClicks(ctx context.Context) error {
	if s.clicks == nil {
		return nil
	}
	codes := s.takeDirty()
	day := s.now().UTC().Truncate(24 * time.Hour)

	var firstErr error
	for _, code := range codes {
		count, err := s.clicks.Drain(ctx, code)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.markDirty(code)
			continue
		}
		count += s.takePending(code)
		if count == 0 {
			continue
		}
		if err := s.links.RecordClicks(ctx, code, day, count); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			// Drained but not persisted; the next flush picks it back up.
			s.addPending(code, count)
			s.markDirty(code)
		}
	}
	return firstErr
}

// ClickStats returns the daily click buckets for the guidebook's link.
func (s *ShortLinkService) ClickStats(ctx context.Context, ownerID, guidebookID uuid.UUID, since time.Time) (*domain.ShortLink, []domain.ShortLinkClickBucket, error) {
	if _, err := s.ownedGuidebook(ctx, ownerID, guidebookID); err != nil {
		return nil, nil, err
	}
	link, err := s.links.FindByGuidebook(ctx, guidebookID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrShortLinkNotFound
		}
		return nil, nil, err
	}
	buckets, err := s.links.ListClickBuckets(ctx, link.Code, since)
	if err != nil {
		return nil, nil, err
	}
	return link, buckets, nil
}

func (s *ShortLinkService) markDirty(code string) {
	s.mu.Lock()
	s.dirty[code] = struct{}{}
	s.mu.Unlock()
}

func (s *ShortLinkService) addPending(code string, count int64) {
	s.mu.Lock()
	s.pending[code] += count
	s.mu.Unlock()
}

func (s *ShortLinkService) takePending(code string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := s.pending[code]
	delete(s.pending, code)
	return count
}

func (s *ShortLinkService) takeDirty() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]string, 0, len(s.dirty))
	for code := range s.dirty {
		codes = append(codes, code)
	}
	s.dirty = map[string]struct{}{}
	return codes
}

func (s *ShortLinkService) ownedGuidebook(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.Guidebook, error) {
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
