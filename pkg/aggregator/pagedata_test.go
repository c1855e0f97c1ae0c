package aggregator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Sternrassler/cms-page-cache/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageData_MarshalJSON_Flat(t *testing.T) {
	loaded := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pd := &PageData{
		Resources: map[string]json.RawMessage{
			"menus":    json.RawMessage(`[{"title":"Main"}]`),
			"homepage": Fallback("homepage"),
		},
		Meta: Meta{
			PageID:             "homepage",
			Locale:             "en",
			SucceededResources: []string{"menus"},
			FailedResources:    []FailedResource{{ResourceName: "homepage", Error: "homepage: server error (status 500)"}},
			LoadedAt:           loaded,
			CacheExpiresAt:     loaded.Add(15 * time.Minute),
			HasErrors:          true,
		},
	}

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var flat map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.JSONEq(t, `[{"title":"Main"}]`, string(flat["menus"]))
	assert.Contains(t, flat, "homepage")
	assert.NotContains(t, flat, "pagination")

	var meta map[string]any
	require.NoError(t, json.Unmarshal(flat["meta"], &meta))
	assert.Equal(t, true, meta["hasErrors"])
	assert.Equal(t, "homepage", meta["pageId"])

	var back PageData
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, pd.Meta, back.Meta)
	assert.Len(t, back.Resources, 2)
	assert.Nil(t, back.Pagination)
}

func TestPageData_Pagination(t *testing.T) {
	pd := &PageData{
		Resources:  map[string]json.RawMessage{"articles": json.RawMessage(`[]`)},
		Pagination: &client.Pagination{Page: 1, PageSize: 10, PageCount: 2, Total: 12},
	}

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var back PageData
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Pagination)
	assert.Equal(t, 12, back.Pagination.Total)
}

func TestPageData_Decode(t *testing.T) {
	pd := &PageData{Resources: map[string]json.RawMessage{"global": json.RawMessage(`{"siteName":"Acme"}`)}}

	var global struct {
		SiteName string `json:"siteName"`
	}
	require.NoError(t, pd.Decode("global", &global))
	assert.Equal(t, "Acme", global.SiteName)

	assert.Error(t, pd.Decode("missing", &global))
}

func TestFallback(t *testing.T) {
	for name := range fallbackPayloads {
		assert.True(t, json.Valid(Fallback(name)), name)
	}
	assert.JSONEq(t, `{}`, string(Fallback("unknown-resource")))
}
