package aggregator

import "encoding/json"

// fallbackPayloads are the minimal documents substituted for failed
// resources so a page renders degraded rather than blank.
var fallbackPayloads = map[string]string{
	"homepage": `{"title":"Welcome","blocks":[]}`,
	"menus":    `[]`,
	"about":    `{"title":"About us","blocks":[]}`,
	"services": `{"title":"Services","blocks":[]}`,
	"articles": `[]`,
	"contact":  `{"title":"Contact","blocks":[]}`,
	"careers":  `{"title":"Careers","jobs":[]}`,
	"global":   `{"siteName":"","footer":{"links":[]}}`,
}

// Fallback returns the fallback payload for resource. Resources without a
// dedicated payload get an empty object.
func Fallback(resource string) json.RawMessage {
	if p, ok := fallbackPayloads[resource]; ok {
		return json.RawMessage(p)
	}
	return json.RawMessage(`{}`)
}
