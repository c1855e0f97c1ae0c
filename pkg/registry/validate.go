package registry

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxFillDepth caps how deep a resource may ask upstream to expand relations.
const MaxFillDepth = 10

var endpointPattern = regexp.MustCompile(`^/\S*$`)

// Validate checks one page configuration.
func (p PageResourceConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.PageID, validation.Required),
		validation.Field(&p.Resources, validation.Required, validation.Each(validation.Required)),
		validation.Field(&p.CacheDuration, validation.Required, validation.Min(time.Second)),
		validation.Field(&p.Priority, validation.Required,
			validation.In(PriorityLow, PriorityMedium, PriorityHigh)),
		validation.Field(&p.Cache, validation.Required,
			validation.In(CacheHomepage, CachePages, CacheNews, CacheMenus)),
	)
}

// Validate checks one resource endpoint configuration.
func (r ResourceEndpointConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Endpoint, validation.Required, validation.Match(endpointPattern)),
		validation.Field(&r.FillDepth, validation.Min(0), validation.Max(MaxFillDepth)),
	)
}

// Validate checks every table entry. Resource names without an endpoint are
// not errors; they are listed by Unresolved and load through the generic
// endpoint.
func (r *Registry) Validate() error {
	errs := validation.Errors{}
	for id, p := range r.pages {
		if err := p.Validate(); err != nil {
			errs["pages."+id] = err
		}
	}
	for name, res := range r.resources {
		if err := res.Validate(); err != nil {
			errs["resources."+name] = err
		}
	}
	return errs.Filter()
}
