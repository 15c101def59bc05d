package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

const (
	maxListingBodyBytes = 4 << 20
	fetcherUserAgent    = "Mozilla/5.0 (compatible; RoomyBot/1.0; +https://roomy.app)"
)

// ListingFetcher pulls Open Graph metadata off a public listing page.
type ListingFetcher struct {
	client *http.Client
}

func NewListingFetcher(timeout time.Duration) *ListingFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ListingFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *ListingFetcher) Fetch(ctx context.Context, listingURL string) (*domain.ScrapedListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fetcherUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing page returned %d", resp.StatusCode)
	}

	listing, err := ParseListing(io.LimitReader(resp.Body, maxListingBodyBytes))
	if err != nil {
		return nil, err
	}
	listing.URL = listingURL
	return listing, nil
}

// ParseListing walks the document for Open Graph and standard meta tags.
// Airbnb pages carry og:title/og:description/og:image plus a set of
// og:image:alt duplicates; plain <title> is the fallback.
func ParseListing(r io.Reader) (*domain.ScrapedListing, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	listing := &domain.ScrapedListing{}
	var pageTitle string

	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "title":
				if node.FirstChild != nil && pageTitle == "" {
					pageTitle = strings.TrimSpace(node.FirstChild.Data)
				}
			case "meta":
				name, content := metaAttrs(node)
				applyMeta(listing, name, content)
			case "html":
				for _, attr := range node.Attr {
					if attr.Key == "lang" && listing.Locale == "" {
						listing.Locale = strings.TrimSpace(attr.Val)
					}
				}
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if listing.Title == "" {
		listing.Title = pageTitle
	}
	if listing.HeroImage == "" && len(listing.Images) > 0 {
		listing.HeroImage = listing.Images[0]
	}
	return listing, nil
}

func metaAttrs(node *html.Node) (name, content string) {
	for _, attr := range node.Attr {
		switch attr.Key {
		case "property", "name":
			if name == "" {
				name = strings.ToLower(strings.TrimSpace(attr.Val))
			}
		case "content":
			content = strings.TrimSpace(attr.Val)
		}
	}
	return name, content
}

func applyMeta(listing *domain.ScrapedListing, name, content string) {
	if content == "" {
		return
	}
	switch name {
	case "og:title", "twitter:title":
		if listing.Title == "" {
			listing.Title = content
		}
	case "og:description", "twitter:description", "description":
		if listing.Description == "" {
			listing.Description = content
		}
	case "og:image", "twitter:image":
		if !containsImage(listing.Images, content) {
			listing.Images = append(listing.Images, content)
		}
		if listing.HeroImage == "" {
			listing.HeroImage = content
		}
	case "og:locale":
		if listing.Locale == "" {
			listing.Locale = content
		}
	}
}

func containsImage(images []string, url string) bool {
	for _, existing := range images {
		if existing == url {
			return true
		}
	}
	return false
}

var _ ports.ListingFetcher = (*ListingFetcher)(nil)
