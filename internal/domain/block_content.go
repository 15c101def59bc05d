package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnknownBlockType indicates a block type that has no registered schema.
// Reaching it means a dispatch/schema mismatch, not bad user input.
var ErrUnknownBlockType = errors.New("unknown block type")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level problems for content that failed its
// block type's schema. It is an expected, recoverable condition.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid block content: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// BlockContent is the discriminated union of per-type content payloads.
type BlockContent interface {
	ContentType() BlockType
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type HeroContent struct {
	Title           string   `json:"title"`
	Subtitle        *string  `json:"subtitle,omitempty"`
	BackgroundImage *string  `json:"backgroundImage,omitempty"`
	OverlayColor    *string  `json:"overlayColor,omitempty"`
	OverlayOpacity  *float64 `json:"overlayOpacity,omitempty"`
}

func (HeroContent) ContentType() BlockType { return BlockTypeHero }

type WiFiInfo struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

type DoorLockInfo struct {
	Password     string `json:"password"`
	Instructions string `json:"instructions,omitempty"`
}

type QuickInfoContent struct {
	CheckIn     string        `json:"checkIn"`
	CheckOut    string        `json:"checkOut"`
	Address     string        `json:"address"`
	WiFi        *WiFiInfo     `json:"wifi,omitempty"`
	DoorLock    *DoorLockInfo `json:"doorLock,omitempty"`
	Coordinates *Coordinates  `json:"coordinates,omitempty"`
}

func (QuickInfoContent) ContentType() BlockType { return BlockTypeQuickInfo }

type AmenityItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	Available bool   `json:"available"`
}

type AmenitiesContent struct {
	Items []AmenityItem `json:"items"`
}

func (AmenitiesContent) ContentType() BlockType { return BlockTypeAmenities }

type RuleSection struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Icon  string   `json:"icon,omitempty"`
	Items []string `json:"items"`
}

type RulesContent struct {
	Sections          []RuleSection `json:"sections"`
	CheckoutChecklist []string      `json:"checkoutChecklist,omitempty"`
}

func (RulesContent) ContentType() BlockType { return BlockTypeRules }

type MapMarker struct {
	ID       string      `json:"id"`
	Label    string      `json:"label,omitempty"`
	Position Coordinates `json:"position"`
}

type MapContent struct {
	Center   Coordinates `json:"center"`
	Zoom     int         `json:"zoom"`
	Markers  []MapMarker `json:"markers"`
	Provider string      `json:"provider"`
}

func (MapContent) ContentType() BlockType { return BlockTypeMap }

type GalleryImage struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	Alt     *string `json:"alt,omitempty"`
	Caption *string `json:"caption,omitempty"`
}

type GalleryContent struct {
	Images []GalleryImage `json:"images"`
	Layout string         `json:"layout"`
}

func (GalleryContent) ContentType() BlockType { return BlockTypeGallery }

type NoticeContent struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	Dismissible *bool  `json:"dismissible,omitempty"`
}

func (NoticeContent) ContentType() BlockType { return BlockTypeNotice }

type CustomContent struct {
	Title *string `json:"title,omitempty"`
	Body  string  `json:"body,omitempty"`
}

func (CustomContent) ContentType() BlockType { return BlockTypeCustom }

var hhmmPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ParseBlockContent decodes and validates raw content against the schema for
// the given block type. Unknown/extra JSON fields are ignored; validation
// failures come back as a *ValidationError naming each offending field.
func ParseBlockContent(blockType BlockType, raw json.RawMessage) (BlockContent, error) {
	if !blockType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, blockType)
	}

	verr := &ValidationError{}
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	switch blockType {
	case BlockTypeHero:
		var content HeroContent
		if err := json.Unmarshal(raw, &content); err != nil {
			verr.Add("content", "must be a JSON object")
			return nil, verr
		}
		validateHero(&content, verr)
		if err := verr.orNil(); err != nil {
			return nil, err
		}
		return content, nil

	case BlockTypeQuickInfo:
		var content QuickInfoContent
		if err := json.Unmarshal(raw, &content); err != nil {
			verr.Add("content", "must be a JSON object")
			return nil, verr
		}
		validateQuickInfo(&content, verr)
		if err := verr.orNil(); err != nil {
			return nil, err
		}
		return content, nil

	case BlockTypeAmenities:
		var content AmenitiesContent
		if err := json.Unmarshal(raw, &content); err != nil {
			verr.Add("content", "must be a JSON object")
			return nil, verr
		}
		validateAmenities(&content, verr)
		if err := verr.orNil(); err != nil {
			return nil, err
		}
		return content, nil

	case BlockTypeRules:
		var content RulesContent
		if err := json.Unmarshal(raw, &content); err != nil {
			verr.Add("content", "must be a JSON object")
			return nil, verr
		}
		validateRules(&content, verr)
		if err := verr.orNil(); err != nil {
			return nil, err
		}
		return content, nil

	case BlockTypeMap:
		var content MapContent
		if err := json.Unmarshal(raw, &content); err != nil {
			verr.Add("content", "must be a JSON object")
			return nil, verr
		}
		validateMap(&content, verr)
		if err := verr.orNil(); err != nil {
			return nil, err
		}
		return content, nil

	case BlockTypeGallery:
		var content GalleryContent
		if err := json.Unmarshal(raw, &content); err != nil {
			verr.Add("content", "must be a JSON object")
			return nil, verr
		}
		validateGallery(&content, verr)
		if err := verr.orNil(); err != nil {
			return nil, err
		}
		return content, nil

	case BlockTypeNotice:
		var content NoticeContent
		if err := json.Unmarshal(raw, &content); err != nil {
			verr.Add("content", "must be a JSON object")
			return nil, verr
		}
		validateNotice(&content, verr)
		if err := verr.orNil(); err != nil {
			return nil, err
		}
		return content, nil

	case BlockTypeCustom:
		var content CustomContent
		if err := json.Unmarshal(raw, &content); err != nil {
			verr.Add("content", "must be a JSON object")
			return nil, verr
		}
		return content, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, blockType)
}

// MergeContent applies a shallow JSON-object merge of patch onto existing.
// Keys present in patch win; keys set to null in patch are removed.
func MergeContent(existing, patch json.RawMessage) (json.RawMessage, error) {
	base := map[string]json.RawMessage{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			return nil, err
		}
	}
	overlay := map[string]json.RawMessage{}
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &overlay); err != nil {
			return nil, err
		}
	}
	for key, val := range overlay {
		if string(val) == "null" {
			delete(base, key)
			continue
		}
		base[key] = val
	}
	return json.Marshal(base)
}

func validateHero(c *HeroContent, verr *ValidationError) {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		verr.Add("title", "is required")
	}
	if c.BackgroundImage != nil && strings.TrimSpace(*c.BackgroundImage) != "" {
		validateURLField("backgroundImage", *c.BackgroundImage, verr)
	}
	if c.OverlayOpacity != nil {
		if *c.OverlayOpacity < 0 || *c.OverlayOpacity > 1 {
			verr.Add("overlayOpacity", "must be between 0 and 1")
		}
	}
}

func validateQuickInfo(c *QuickInfoContent, verr *ValidationError) {
	validateTimeField("checkIn", c.CheckIn, verr)
	validateTimeField("checkOut", c.CheckOut, verr)
	if strings.TrimSpace(c.Address) == "" {
		verr.Add("address", "is required")
	}
	if c.WiFi != nil && strings.TrimSpace(c.WiFi.SSID) == "" {
		verr.Add("wifi.ssid", "is required")
	}
	if c.DoorLock != nil && strings.TrimSpace(c.DoorLock.Password) == "" {
		verr.Add("doorLock.password", "is required")
	}
	if c.Coordinates != nil {
		validateCoordinates("coordinates", *c.Coordinates, verr)
	}
}

func validateAmenities(c *AmenitiesContent, verr *ValidationError) {
	for idx, item := range c.Items {
		if strings.TrimSpace(item.Name) == "" {
			verr.Add(fmt.Sprintf("items[%d].name", idx), "is required")
		}
	}
}

func validateRules(c *RulesContent, verr *ValidationError) {
	for idx, section := range c.Sections {
		if strings.TrimSpace(section.Title) == "" {
			verr.Add(fmt.Sprintf("sections[%d].title", idx), "is required")
		}
	}
}

var mapProviders = map[string]struct{}{
	"naver":  {},
	"kakao":  {},
	"google": {},
}

func validateMap(c *MapContent, verr *ValidationError) {
	validateCoordinates("center", c.Center, verr)
	if c.Zoom <= 0 {
		verr.Add("zoom", "must be positive")
	}
	if _, ok := mapProviders[c.Provider]; !ok {
		verr.Add("provider", "must be one of naver, kakao, google")
	}
	for idx, marker := range c.Markers {
		validateCoordinates(fmt.Sprintf("markers[%d].position", idx), marker.Position, verr)
	}
}

func validateGallery(c *GalleryContent, verr *ValidationError) {
	if c.Layout == "" {
		c.Layout = "grid"
	}
	if c.Layout != "grid" && c.Layout != "slider" {
		verr.Add("layout", "must be grid or slider")
	}
	for idx, image := range c.Images {
		validateURLField(fmt.Sprintf("images[%d].url", idx), image.URL, verr)
	}
}

func validateNotice(c *NoticeContent, verr *ValidationError) {
	if strings.TrimSpace(c.Title) == "" {
		verr.Add("title", "is required")
	}
	switch c.Type {
	case "info", "warning", "danger":
	default:
		verr.Add("type", "must be one of info, warning, danger")
	}
}

func validateCoordinates(field string, c Coordinates, verr *ValidationError) {
	if c.Lat < -90 || c.Lat > 90 {
		verr.Add(field+".lat", "must be between -90 and 90")
	}
	if c.Lng < -180 || c.Lng > 180 {
		verr.Add(field+".lng", "must be between -180 and 180")
	}
}

func validateTimeField(field, raw string, verr *ValidationError) {
	if !hhmmPattern.MatchString(raw) {
		verr.Add(field, "must be in HH:mm format")
		return
	}
	hours, _ := strconv.Atoi(raw[:2])
	minutes, _ := strconv.Atoi(raw[3:])
	if hours > 23 || minutes > 59 {
		verr.Add(field, "must be a valid time of day")
	}
}

func validateURLField(field, raw string, verr *ValidationError) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		verr.Add(field, "must be a valid http(s) URL")
	}
}
