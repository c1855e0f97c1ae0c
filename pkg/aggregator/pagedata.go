package aggregator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/cms-page-cache/pkg/client"
)

// FailedResource records one resource that was replaced by its fallback.
type FailedResource struct {
	ResourceName string `json:"resourceName"`
	Error        string `json:"error"`
	Class        string `json:"class,omitempty"`
}

// Meta describes how a PageData value was assembled.
type Meta struct {
	PageID             string           `json:"pageId"`
	Locale             string           `json:"locale"`
	LoadTimeMs         int64            `json:"loadTimeMs"`
	SucceededResources []string         `json:"succeededResources"`
	FailedResources    []FailedResource `json:"failedResources"`
	LoadedAt           time.Time        `json:"loadedAt"`
	CacheExpiresAt     time.Time        `json:"cacheExpiresAt"`
	HasErrors          bool             `json:"hasErrors"`
}

// PageData is the assembled content of one page in one locale.
// Values stored in a cache are shared and must not be modified.
type PageData struct {
	Resources  map[string]json.RawMessage
	Pagination *client.Pagination
	Meta       Meta
}

// Resource returns the raw payload of name, or nil.
func (p *PageData) Resource(name string) json.RawMessage {
	return p.Resources[name]
}

// Decode unmarshals the payload of name into v.
func (p *PageData) Decode(name string, v any) error {
	raw, ok := p.Resources[name]
	if !ok {
		return fmt.Errorf("resource %q not loaded", name)
	}
	return json.Unmarshal(raw, v)
}

// MarshalJSON writes the flat { <resource>: data, ..., "meta": {...} } shape.
func (p *PageData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Resources)+2)
	for name, raw := range p.Resources {
		if len(raw) == 0 {
			out[name] = nil
			continue
		}
		out[name] = raw
	}
	if p.Pagination != nil {
		out["pagination"] = p.Pagination
	}
	out["meta"] = p.Meta
	return json.Marshal(out)
}

// UnmarshalJSON reads the shape written by MarshalJSON.
func (p *PageData) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.Resources = make(map[string]json.RawMessage, len(fields))
	for name, raw := range fields {
		switch name {
		case "meta":
			if err := json.Unmarshal(raw, &p.Meta); err != nil {
				return fmt.Errorf("meta: %w", err)
			}
		case "pagination":
			p.Pagination = &client.Pagination{}
			if err := json.Unmarshal(raw, p.Pagination); err != nil {
				return fmt.Errorf("pagination: %w", err)
			}
		default:
			p.Resources[name] = raw
		}
	}
	return nil
}
