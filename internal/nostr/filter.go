package nostr

import (
	"bytes"
	"encoding/json"
)

// Filter is a NIP-01 subscription filter. Tag constraints are keyed by the
// bare tag letter ("e", "d", ...) and serialized with the "#" prefix.
type Filter struct {
	IDs     []string
	Kinds   []int
	Authors []string
	Tags    map[string][]string
	Since   *int64
	Limit   int
}

// MarshalJSON produces the wire form: {"ids":[...],"kinds":[...],"#e":[...]}.
func (f Filter) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{})
	if len(f.IDs) > 0 {
		obj["ids"] = f.IDs
	}
	if len(f.Kinds) > 0 {
		obj["kinds"] = f.Kinds
	}
	if len(f.Authors) > 0 {
		obj["authors"] = f.Authors
	}
	for letter, values := range f.Tags {
		if len(values) > 0 {
			obj["#"+letter] = values
		}
	}
	if f.Since != nil {
		obj["since"] = *f.Since
	}
	if f.Limit > 0 {
		obj["limit"] = f.Limit
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(obj); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Matches reports whether the event satisfies every constraint of the filter.
// Relays are not trusted to filter correctly; responses are re-checked.
func (f Filter) Matches(e *Event) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, e.ID) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, e.Kind) {
		return false
	}
	if len(f.Authors) > 0 && !containsString(f.Authors, e.PubKey) {
		return false
	}
	for letter, values := range f.Tags {
		matched := false
		for _, v := range e.TagValues(letter) {
			if containsString(values, v) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, item := range list {
		if item == n {
			return true
		}
	}
	return false
}
