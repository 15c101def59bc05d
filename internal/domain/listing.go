package domain

// ScrapedListing holds the metadata pulled from a short-term rental listing
// page, before it is turned into starter blocks.
type ScrapedListing struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	HeroImage   string   `json:"hero_image"`
	Images      []string `json:"images"`
	Locale      string   `json:"locale,omitempty"`
}
