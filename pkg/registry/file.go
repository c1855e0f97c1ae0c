package registry

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a registry override file.
//
//	resources:
//	  - name: faq
//	    endpoint: /api/faq
//	    fill_depth: 2
//	pages:
//	  - page_id: faq
//	    resources: [faq, menus]
//	    cache_duration: 20m
//	    priority: medium
type File struct {
	Resources []FileResource `yaml:"resources"`
	Pages     []FilePage     `yaml:"pages"`
}

type FileResource struct {
	Name      string `yaml:"name"`
	Endpoint  string `yaml:"endpoint"`
	FillDepth *int   `yaml:"fill_depth"`
}

type FilePage struct {
	PageID        string   `yaml:"page_id"`
	Resources     []string `yaml:"resources"`
	CacheDuration string   `yaml:"cache_duration"`
	Priority      Priority `yaml:"priority"`
	Cache         string   `yaml:"cache"`
}

// ParseFile decodes a registry override document.
func ParseFile(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("registry: parse: %w", err)
	}
	return f, nil
}

// LoadFile reads the override file at path and merges it over base.
// The merged registry is validated before it is returned.
func LoadFile(base *Registry, path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, err
	}
	merged, err := base.Merge(f)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: %w", path, err)
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("registry: %s: %w", path, err)
	}
	for _, ref := range merged.Unresolved() {
		merged.logger.Warn().Str("reference", ref).Msg("Page references resource without endpoint")
	}
	return merged, nil
}

// Merge returns a new registry with f's definitions layered over r.
// Page fields left empty in f keep the values of an existing page with
// the same id; new pages default to medium priority.
func (r *Registry) Merge(f File) (*Registry, error) {
	resources := make(map[string]ResourceEndpointConfig, len(r.resources)+len(f.Resources))
	for name, res := range r.resources {
		resources[name] = res
	}
	for i, fr := range f.Resources {
		if fr.Name == "" {
			return nil, fmt.Errorf("resources[%d]: name is required", i)
		}
		res, ok := resources[fr.Name]
		if !ok {
			res = ResourceEndpointConfig{Name: fr.Name, FillDepth: DefaultFillDepth}
		}
		if fr.Endpoint != "" {
			res.Endpoint = fr.Endpoint
		}
		if fr.FillDepth != nil {
			res.FillDepth = *fr.FillDepth
		}
		resources[fr.Name] = res
	}

	pages := make(map[string]PageResourceConfig, len(r.pages)+len(f.Pages))
	for id, p := range r.pages {
		pages[id] = p
	}
	for i, fp := range f.Pages {
		if fp.PageID == "" {
			return nil, fmt.Errorf("pages[%d]: page_id is required", i)
		}
		p, ok := pages[fp.PageID]
		if !ok {
			p = PageResourceConfig{
				PageID:        fp.PageID,
				CacheDuration: DefaultPageCacheDuration,
				Priority:      PriorityMedium,
				Cache:         CachePages,
			}
		}
		if len(fp.Resources) > 0 {
			p.Resources = append([]string(nil), fp.Resources...)
		}
		if fp.CacheDuration != "" {
			d, err := time.ParseDuration(fp.CacheDuration)
			if err != nil {
				return nil, fmt.Errorf("pages[%d].cache_duration: %w", i, err)
			}
			p.CacheDuration = d
		}
		if fp.Priority != "" {
			p.Priority = fp.Priority
		}
		if fp.Cache != "" {
			p.Cache = fp.Cache
		}
		pages[fp.PageID] = p
	}

	pageList := make([]PageResourceConfig, 0, len(pages))
	for _, p := range pages {
		pageList = append(pageList, p)
	}
	resourceList := make([]ResourceEndpointConfig, 0, len(resources))
	for _, res := range resources {
		resourceList = append(resourceList, res)
	}

	merged := New(pageList, resourceList)
	merged.logger = r.logger
	return merged, nil
}
