// Package normalize converts upstream block arrays into typed, page-ready
// view models. Unknown block tags are skipped with a warning.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/cms-page-cache/pkg/logging"
	"github.com/rs/zerolog"
)

// ErrNotObject is returned when page content is not a JSON object.
var ErrNotObject = errors.New("content is not an object")

// Options configures a Normalizer.
type Options struct {
	// MediaBaseURL prefixes relative media URLs.
	MediaBaseURL string
	Logger       *zerolog.Logger
}

// Normalizer shapes raw content. It holds no mutable state and is safe
// for concurrent use.
type Normalizer struct {
	mediaBaseURL string
	logger       zerolog.Logger
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	n := &Normalizer{mediaBaseURL: strings.TrimRight(opts.MediaBaseURL, "/")}
	if opts.Logger != nil {
		n.logger = *opts.Logger
	} else {
		n.logger = logging.NewLogger("normalizer")
	}
	return n
}

// PageView is the typed content of one page.
type PageView struct {
	Title       string            `json:"title,omitempty"`
	Banner      []BannerSlide     `json:"banner"`
	Solutions   []SolutionCard    `json:"solutions"`
	Information []InformationTile `json:"information"`
	ClientLogos *ClientLogoSet    `json:"clientLogos,omitempty"`
	Awards      *AwardsSet        `json:"awards,omitempty"`
	Cards       []PromoCard       `json:"cards"`
	// Skipped lists the tags of unrecognized blocks in document order.
	Skipped []string `json:"skipped,omitempty"`
}

// Blocks normalizes a block array. raw may be the array itself or a page
// object holding it under "blocks", "content", "sections" or "body".
func (n *Normalizer) Blocks(raw json.RawMessage) ([]Block, error) {
	items, err := blockItems(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Block, 0, len(items))
	for _, o := range items {
		out = append(out, n.block(o))
	}
	return out, nil
}

// Page normalizes a page object into named slots: the first banner's
// slides, the first solutions grid, the first information row, the first
// client logo set, the first awards set, and every promo card.
func (n *Normalizer) Page(raw json.RawMessage) (PageView, error) {
	view := PageView{
		Banner:      []BannerSlide{},
		Solutions:   []SolutionCard{},
		Information: []InformationTile{},
		Cards:       []PromoCard{},
	}
	if page, ok := parseObject(raw); ok {
		view.Title = page.str("title", "name", "heading")
	}

	blocks, err := n.Blocks(raw)
	if err != nil {
		return view, err
	}

	var haveBanner, haveSolutions, haveInfo bool
	for _, b := range blocks {
		switch v := b.(type) {
		case Banner:
			if !haveBanner {
				view.Banner, haveBanner = v.Slides, true
			}
		case Solutions:
			if !haveSolutions {
				view.Solutions, haveSolutions = v.Cards, true
			}
		case Information:
			if !haveInfo {
				view.Information, haveInfo = v.Tiles, true
			}
		case ClientLogoSet:
			if view.ClientLogos == nil {
				set := v
				view.ClientLogos = &set
			}
		case AwardsSet:
			if view.Awards == nil {
				set := v
				view.Awards = &set
			}
		case PromoCard:
			view.Cards = append(view.Cards, v)
		case Unknown:
			view.Skipped = append(view.Skipped, v.Tag)
		}
	}
	return view, nil
}

// blockItems locates the block array in raw.
func blockItems(raw json.RawMessage) ([]object, error) {
	if isNull(raw) {
		return nil, nil
	}
	if page, ok := parseObject(raw); ok {
		for _, key := range []string{"blocks", "content", "sections", "body"} {
			if v := page.raw(key); v != nil {
				return parseList(v), nil
			}
		}
		return nil, nil
	}
	var probe []json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("normalize: %w", ErrNotObject)
	}
	return parseList(raw), nil
}

// block converts one raw block to its variant.
func (n *Normalizer) block(o object) Block {
	component := o.str("__component", "type", "component")
	switch KindOf(component) {
	case KindBanner:
		return n.banner(o)
	case KindSolution:
		return n.solutions(o)
	case KindInformation:
		return n.information(o)
	case KindClientLogo:
		return ClientLogoSet{
			Title: o.str("title", "heading"),
			Logos: n.Images(o.raw("logos", "images", "items")),
		}
	case KindAwards:
		return n.awards(o)
	case KindCard:
		return n.card(o)
	default:
		tag := CanonicalTag(component)
		if tag == "" {
			tag = "(untagged)"
		}
		n.logger.Warn().Str("block", component).Msg("Unrecognized block, skipping")
		raw, _ := json.Marshal(o)
		return Unknown{Tag: tag, Raw: raw}
	}
}

func (n *Normalizer) banner(o object) Banner {
	items := o.list("slides", "items", "banners")
	if items == nil {
		items = []object{o}
	}
	b := Banner{Slides: make([]BannerSlide, 0, len(items))}
	for _, s := range items {
		b.Slides = append(b.Slides, BannerSlide{
			Title:       s.str("title", "heading"),
			Subtitle:    s.str("subtitle", "subheading"),
			Description: PlainText(s.raw("description", "text")),
			Image:       n.Image(s.raw("image", "background", "media")),
			CTA:         link(s, "button", "cta", "link"),
		})
	}
	return b
}

func (n *Normalizer) solutions(o object) Solutions {
	items := o.list("cards", "items", "solutions")
	s := Solutions{Title: o.str("title", "heading"), Cards: make([]SolutionCard, 0, len(items))}
	for _, c := range items {
		s.Cards = append(s.Cards, SolutionCard{
			Title:       c.str("title", "name"),
			Description: PlainText(c.raw("description", "text")),
			Icon:        n.Image(c.raw("icon", "image")),
			Link:        link(c, "link", "button", "cta"),
		})
	}
	return s
}

func (n *Normalizer) information(o object) Information {
	items := o.list("tiles", "items", "stats")
	info := Information{Title: o.str("title", "heading"), Tiles: make([]InformationTile, 0, len(items))}
	for _, t := range items {
		info.Tiles = append(info.Tiles, InformationTile{
			Title:       t.str("title", "label", "name"),
			Value:       t.str("value", "number", "figure"),
			Description: PlainText(t.raw("description", "text")),
			Icon:        n.Image(t.raw("icon", "image")),
		})
	}
	return info
}

func (n *Normalizer) awards(o object) AwardsSet {
	items := o.list("awards", "items")
	set := AwardsSet{Title: o.str("title", "heading"), Awards: make([]Award, 0, len(items))}
	for _, a := range items {
		set.Awards = append(set.Awards, Award{
			Name:  a.str("name", "title"),
			Year:  a.str("year"),
			Image: n.Image(a.raw("image", "logo", "icon")),
		})
	}
	return set
}

func (n *Normalizer) card(o object) PromoCard {
	return PromoCard{
		Title:       o.str("title", "heading"),
		Description: PlainText(o.raw("description", "text", "content")),
		Image:       n.Image(o.raw("image", "media")),
		Link:        link(o, "link", "button", "cta"),
	}
}
