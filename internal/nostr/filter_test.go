package nostr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMarshalJSON(t *testing.T) {
	since := int64(1700000000)
	f := Filter{
		Kinds:   []int{KindCalendarEvent},
		Authors: []string{"pubkey1"},
		Tags:    map[string][]string{"d": {"stammtisch"}},
		Since:   &since,
		Limit:   1,
	}

	raw, err := f.MarshalJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Contains(t, decoded, "kinds")
	assert.Contains(t, decoded, "authors")
	assert.Contains(t, decoded, "#d")
	assert.NotContains(t, decoded, "d")
	assert.EqualValues(t, 1700000000, decoded["since"])
	assert.EqualValues(t, 1, decoded["limit"])

	// Empty constraints are omitted entirely
	empty, err := Filter{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))
}

func TestFilterMatches(t *testing.T) {
	e := &Event{
		ID:        "eventid",
		PubKey:    "author1",
		CreatedAt: 1700000100,
		Kind:      KindCalendarEvent,
		Tags:      [][]string{{"d", "stammtisch"}, {"e", "ref1"}},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches everything", Filter{}, true},
		{"matching kind", Filter{Kinds: []int{KindCalendarEvent}}, true},
		{"wrong kind", Filter{Kinds: []int{KindDeletion}}, false},
		{"matching id", Filter{IDs: []string{"eventid"}}, true},
		{"wrong id", Filter{IDs: []string{"other"}}, false},
		{"matching author", Filter{Authors: []string{"author1"}}, true},
		{"wrong author", Filter{Authors: []string{"author2"}}, false},
		{"matching tag", Filter{Tags: map[string][]string{"e": {"ref1"}}}, true},
		{"missing tag", Filter{Tags: map[string][]string{"e": {"ref2"}}}, false},
		{"since before created_at", Filter{Since: int64Ptr(1700000000)}, true},
		{"since after created_at", Filter{Since: int64Ptr(1800000000)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(e))
		})
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
