package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const listingPage = `<!DOCTYPE html>
<html lang="en">
<head>
<title>Cozy Seaside Loft - Apartments for Rent</title>
<meta property="og:title" content="Cozy Seaside Loft" />
<meta property="og:description" content="Two minutes from the beach." />
<meta property="og:image" content="https://img.test/hero.jpg" />
<meta property="og:image" content="https://img.test/2.jpg" />
<meta property="og:image" content="https://img.test/2.jpg" />
<meta property="og:locale" content="en_US" />
</head>
<body><h1>Listing</h1></body>
</html>`

func TestParseListing(t *testing.T) {
	listing, err := ParseListing(strings.NewReader(listingPage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if listing.Title != "Cozy Seaside Loft" {
		t.Fatalf("expected og:title to win, got %q", listing.Title)
	}
	if listing.Description != "Two minutes from the beach." {
		t.Fatalf("unexpected description %q", listing.Description)
	}
	if listing.HeroImage != "https://img.test/hero.jpg" {
		t.Fatalf("unexpected hero image %q", listing.HeroImage)
	}
	if len(listing.Images) != 2 {
		t.Fatalf("expected duplicate og:image collapsed, got %d images", len(listing.Images))
	}
	if listing.Locale != "en_US" {
		t.Fatalf("unexpected locale %q", listing.Locale)
	}
}

func TestParseListingFallsBackToTitleTag(t *testing.T) {
	page := `<html><head><title>Plain Title</title></head><body></body></html>`
	listing, err := ParseListing(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if listing.Title != "Plain Title" {
		t.Fatalf("expected title tag fallback, got %q", listing.Title)
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "RoomyBot") {
			t.Errorf("unexpected user agent %q", got)
		}
		_, _ = w.Write([]byte(listingPage))
	}))
	defer server.Close()

	fetcher := NewListingFetcher(2 * time.Second)
	listing, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if listing.Title != "Cozy Seaside Loft" {
		t.Fatalf("unexpected title %q", listing.Title)
	}
	if listing.URL != server.URL {
		t.Fatalf("expected request url recorded, got %q", listing.URL)
	}
}

func TestFetchNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	fetcher := NewListingFetcher(2 * time.Second)
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
