package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
	"github.com/roomyhq/roomy-server/internal/util"
)

var (
	ErrListingURLInvalid  = errors.New("listing url is not a supported rental listing")
	ErrListingFetchFailed = errors.New("listing page could not be fetched")
	ErrListingParseFailed = errors.New("listing page had no usable metadata")
)

const importGalleryMax = 8

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

type guidebookCreator interface {
	Create(ctx context.Context, ownerID uuid.UUID, input GuidebookCreateInput) (*domain.Guidebook, error)
}

type blockCreator interface {
	Create(ctx context.Context, ownerID, guidebookID uuid.UUID, input BlockCreateInput) (*domain.Block, error)
}

type sourceURLSetter interface {
	SetSourceURL(ctx context.Context, id uuid.UUID, sourceURL string) error
}

type ListingImportService struct {
	fetcher    ports.ListingFetcher
	guidebooks guidebookCreator
	blocks     blockCreator
	source     sourceURLSetter
}

func NewListingImportService(fetcher ports.ListingFetcher, guidebooks guidebookCreator, blocks blockCreator, source sourceURLSetter) *ListingImportService {
	return &ListingImportService{fetcher: fetcher, guidebooks: guidebooks, blocks: blocks, source: source}
}

// Import fetches a rental listing page and generates a starter guidebook:
// hero from the page title and OG image, gallery from the scraped images,
// plus quick-info and rules skeletons for the host to fill in.
func (s *ListingImportService) Import(ctx context.Context, ownerID uuid.UUID, listingURL string) (*domain.Guidebook, []domain.Block, error) {
	normalized, err := normalizeListingURL(listingURL)
	if err != nil {
		return nil, nil, err
	}

	listing, err := s.fetcher.Fetch(ctx, normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrListingFetchFailed, err)
	}
	if strings.TrimSpace(listing.Title) == "" {
		return nil, nil, ErrListingParseFailed
	}

	guidebook, err := s.createWithFreshSlug(ctx, ownerID, listing)
	if err != nil {
		return nil, nil, err
	}
	if s.source != nil {
		if err := s.source.SetSourceURL(ctx, guidebook.ID, normalized); err != nil {
			return nil, nil, err
		}
	}

	blocks := make([]domain.Block, 0, 4)
	for _, starter := range starterBlocks(listing) {
		block, err := s.blocks.Create(ctx, ownerID, guidebook.ID, starter)
		if err != nil {
			return nil, nil, err
		}
		blocks = append(blocks, *block)
	}
	return guidebook, blocks, nil
}

func (s *ListingImportService) createWithFreshSlug(ctx context.Context, ownerID uuid.UUID, listing *domain.ScrapedListing) (*domain.Guidebook, error) {
	base := slugify(listing.Title)
	var description *string
	if desc := strings.TrimSpace(listing.Description); desc != "" {
		description = &desc
	}

	for attempt := 0; attempt < 4; attempt++ {
		suffix, err := util.GenerateShortCode(5)
		if err != nil {
			return nil, err
		}
		slug := base + "-" + strings.ToLower(suffix)
		guidebook, err := s.guidebooks.Create(ctx, ownerID, GuidebookCreateInput{
			Title:       strings.TrimSpace(listing.Title),
			Slug:        slug,
			Description: description,
		})
		if err != nil {
			if errors.Is(err, ErrSlugTaken) {
				continue
			}
			return nil, err
		}
		return guidebook, nil
	}
	return nil, ErrSlugTaken
}

func starterBlocks(listing *domain.ScrapedListing) []BlockCreateInput {
	hero := domain.HeroContent{Title: strings.TrimSpace(listing.Title)}
	if desc := strings.TrimSpace(listing.Description); desc != "" {
		hero.Subtitle = &desc
	}
	if img := strings.TrimSpace(listing.HeroImage); img != "" {
		hero.BackgroundImage = &img
	}

	starters := []BlockCreateInput{
		{Type: domain.BlockTypeHero, Content: mustContent(hero)},
		{Type: domain.BlockTypeQuickInfo, Content: mustContent(domain.QuickInfoContent{
			CheckIn:  "15:00",
			CheckOut: "11:00",
			Address:  "Add your address",
		})},
		{Type: domain.BlockTypeRules, Content: mustContent(domain.RulesContent{
			Sections: []domain.RuleSection{{
				ID:    uuid.NewString(),
				Title: "House rules",
				Items: []string{"No smoking", "No parties or events"},
			}},
		})},
	}

	images := make([]domain.GalleryImage, 0, importGalleryMax)
	for _, raw := range listing.Images {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || trimmed == strings.TrimSpace(listing.HeroImage) {
			continue
		}
		images = append(images, domain.GalleryImage{ID: uuid.NewString(), URL: trimmed})
		if len(images) == importGalleryMax {
			break
		}
	}
	if len(images) > 0 {
		starters = append(starters, BlockCreateInput{
			Type:    domain.BlockTypeGallery,
			Content: mustContent(domain.GalleryContent{Images: images, Layout: "grid"}),
		})
	}
	return starters
}

func normalizeListingURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", ErrListingURLInvalid
	}
	host := strings.ToLower(parsed.Hostname())
	if host != "airbnb.com" && !strings.HasSuffix(host, ".airbnb.com") &&
		!strings.HasPrefix(host, "airbnb.") && !strings.Contains(host, ".airbnb.") {
		return "", ErrListingURLInvalid
	}
	if !strings.Contains(parsed.Path, "/rooms/") {
		return "", ErrListingURLInvalid
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

func slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	if slug == "" {
		slug = "guidebook"
	}
	return slug
}

func mustContent(content domain.BlockContent) json.RawMessage {
	raw, err := json.Marshal(content)
	if err != nil {
		panic(err)
	}
	return raw
}
