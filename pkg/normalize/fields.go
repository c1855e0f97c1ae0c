package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// object is one decoded JSON object with upstream envelopes removed.
type object map[string]json.RawMessage

// parseObject decodes raw as an object, unwrapping {data: ...} relations
// and lifting {id, attributes: {...}} entities to a single level.
func parseObject(raw json.RawMessage) (object, bool) {
	raw = relation(raw)
	var o object
	if err := json.Unmarshal(raw, &o); err != nil || o == nil {
		return nil, false
	}
	return flatten(o), true
}

// parseList decodes raw as an array of objects, accepting a {data: [...]}
// wrapper. Elements that are not objects are dropped.
func parseList(raw json.RawMessage) []object {
	raw = relation(raw)
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]object, 0, len(items))
	for _, item := range items {
		if o, ok := parseObject(item); ok {
			out = append(out, o)
		}
	}
	return out
}

// flatten merges the attributes of a versioned entity into its top level.
func flatten(o object) object {
	attrs, ok := o["attributes"]
	if !ok {
		return o
	}
	var inner object
	if err := json.Unmarshal(attrs, &inner); err != nil || inner == nil {
		return o
	}
	for k, v := range o {
		if k == "attributes" {
			continue
		}
		if _, exists := inner[k]; !exists {
			inner[k] = v
		}
	}
	return inner
}

// relation returns the payload of a {data: ...} wrapper, or raw itself.
func relation(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var o map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &o); err != nil {
		return raw
	}
	data, ok := o["data"]
	if !ok {
		return raw
	}
	if _, entity := o["attributes"]; entity {
		return raw
	}
	if _, media := o["url"]; media {
		return raw
	}
	return data
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// raw returns the first non-null value among keys.
func (o object) raw(keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := o[k]; ok && !isNull(v) {
			return v
		}
	}
	return nil
}

// str returns the first non-empty string among keys. Numbers are
// rendered in their JSON form.
func (o object) str(keys ...string) string {
	for _, k := range keys {
		v, ok := o[k]
		if !ok || isNull(v) {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// int returns the first integer among keys, accepting numeric strings.
func (o object) int(keys ...string) int {
	for _, k := range keys {
		v, ok := o[k]
		if !ok || isNull(v) {
			continue
		}
		var n int
		if err := json.Unmarshal(v, &n); err == nil {
			return n
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
		}
	}
	return 0
}

// obj returns the first value among keys that decodes as an object.
func (o object) obj(keys ...string) (object, bool) {
	for _, k := range keys {
		if v := o.raw(k); v != nil {
			if inner, ok := parseObject(v); ok {
				return inner, true
			}
		}
	}
	return nil, false
}

// list returns the first non-empty array of objects among keys.
func (o object) list(keys ...string) []object {
	for _, k := range keys {
		if v := o.raw(k); v != nil {
			if items := parseList(v); len(items) > 0 {
				return items
			}
		}
	}
	return nil
}
