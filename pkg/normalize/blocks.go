package normalize

import (
	"encoding/json"
	"strings"
)

// Kind identifies a block variant.
type Kind string

const (
	KindBanner      Kind = "banner"
	KindSolution    Kind = "solution"
	KindInformation Kind = "information"
	KindClientLogo  Kind = "client-logo"
	KindAwards      Kind = "awards"
	KindCard        Kind = "card"
	KindUnknown     Kind = "unknown"
)

// tagKinds maps canonical block tags to variants.
var tagKinds = map[string]Kind{
	"banner":            KindBanner,
	"banners":           KindBanner,
	"hero":              KindBanner,
	"hero-banner":       KindBanner,
	"banner-slider":     KindBanner,
	"solution":          KindSolution,
	"solutions":         KindSolution,
	"information":       KindInformation,
	"info":              KindInformation,
	"info-tiles":        KindInformation,
	"information-tiles": KindInformation,
	"client-logo":       KindClientLogo,
	"client-logos":      KindClientLogo,
	"clients":           KindClientLogo,
	"award":             KindAwards,
	"awards":            KindAwards,
	"card":              KindCard,
	"cards":             KindCard,
	"promo-card":        KindCard,
}

// CanonicalTag reduces a component identifier such as "shared.Client_Logo"
// to its tag form "client-logo".
func CanonicalTag(component string) string {
	tag := strings.ToLower(strings.TrimSpace(component))
	if i := strings.LastIndexByte(tag, '.'); i >= 0 {
		tag = tag[i+1:]
	}
	return strings.ReplaceAll(tag, "_", "-")
}

// KindOf returns the variant for a component identifier.
func KindOf(component string) Kind {
	if k, ok := tagKinds[CanonicalTag(component)]; ok {
		return k
	}
	return KindUnknown
}

// Block is one normalized content block.
type Block interface {
	Kind() Kind
}

// BannerSlide is one slide of a banner carousel.
type BannerSlide struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	Image       *Image `json:"image,omitempty"`
	CTA         *Link  `json:"cta,omitempty"`
}

// Banner is a carousel of slides.
type Banner struct {
	Slides []BannerSlide `json:"slides"`
}

// SolutionCard is one offering in a solutions grid.
type SolutionCard struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        *Image `json:"icon,omitempty"`
	Link        *Link  `json:"link,omitempty"`
}

// Solutions is a titled grid of solution cards.
type Solutions struct {
	Title string         `json:"title,omitempty"`
	Cards []SolutionCard `json:"cards"`
}

// InformationTile is one figure or fact tile.
type InformationTile struct {
	Title       string `json:"title"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
	Icon        *Image `json:"icon,omitempty"`
}

// Information is a titled row of tiles.
type Information struct {
	Title string            `json:"title,omitempty"`
	Tiles []InformationTile `json:"tiles"`
}

// ClientLogoSet is a strip of client logos.
type ClientLogoSet struct {
	Title string  `json:"title,omitempty"`
	Logos []Image `json:"logos"`
}

// Award is one award entry.
type Award struct {
	Name  string `json:"name"`
	Year  string `json:"year,omitempty"`
	Image *Image `json:"image,omitempty"`
}

// AwardsSet is a list of awards.
type AwardsSet struct {
	Title  string  `json:"title,omitempty"`
	Awards []Award `json:"awards"`
}

// PromoCard is a standalone promotional card.
type PromoCard struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       *Image `json:"image,omitempty"`
	Link        *Link  `json:"link,omitempty"`
}

// Unknown is a block whose tag is not recognized.
type Unknown struct {
	Tag string          `json:"tag"`
	Raw json.RawMessage `json:"-"`
}

func (Banner) Kind() Kind        { return KindBanner }
func (Solutions) Kind() Kind     { return KindSolution }
func (Information) Kind() Kind   { return KindInformation }
func (ClientLogoSet) Kind() Kind { return KindClientLogo }
func (AwardsSet) Kind() Kind     { return KindAwards }
func (PromoCard) Kind() Kind     { return KindCard }
func (Unknown) Kind() Kind       { return KindUnknown }
