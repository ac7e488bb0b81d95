// Package directory lists, filters and creates chat rooms from the REST
// directory, and manages the per-room notification opt-in.
package directory

import (
	"encoding/json"
	"net/url"
	"sort"
)

// ParseRooms extracts room names from a directory response. Server versions
// disagree on the shape, so the known forms are tried in order and the first
// match wins:
//
//	{"data": {roomName: {...}, ...}}  -> keys of data
//	{"data": "<json>"}                -> parse, then array or keys
//	["room1", ...]                    -> the array itself
//	{"rooms": ["room1", ...]}         -> the rooms array
//	{roomName: {...}, ...}            -> keys of the root object
func ParseRooms(body []byte) []string {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err == nil {
		if data, ok := root["data"]; ok {
			if names, ok := parseDataField(data); ok {
				return names
			}
		}
		if rooms, ok := root["rooms"]; ok {
			var names []string
			if err := json.Unmarshal(rooms, &names); err == nil {
				return names
			}
		}
		return sortedKeys(root)
	}

	var names []string
	if err := json.Unmarshal(body, &names); err == nil {
		return names
	}
	return nil
}

func parseDataField(data json.RawMessage) ([]string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		return sortedKeys(obj), true
	}

	// data may itself be a JSON-encoded string.
	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		var names []string
		if err := json.Unmarshal([]byte(encoded), &names); err == nil {
			return names, true
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal([]byte(encoded), &inner); err == nil {
			return sortedKeys(inner), true
		}
	}
	return nil, false
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodeName undoes the double URL-encoding user-chosen room names arrive
// with. A name that does not decode is shown as-is.
func DecodeName(name string) string {
	once, err := url.QueryUnescape(name)
	if err != nil {
		return name
	}
	twice, err := url.QueryUnescape(once)
	if err != nil {
		return once
	}
	return twice
}
