package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stammtischbot/internal/nostr"
	"stammtischbot/internal/relay"
)

func TestHandleMeetups(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.calendar = relay.Calendar{
		Name: "Einundzwanzig Meetups",
		Events: []nostr.Event{
			{
				ID:     strings.Repeat("11", 32),
				PubKey: strings.Repeat("ab", 32),
				Kind:   nostr.KindCalendarEvent,
				Tags: [][]string{
					{"d", "stammtisch-1"},
					{"title", "Stammtisch Zürich"},
					{"start", "1767200400"},
					{"location", "Rathausplatz"},
				},
			},
		},
	}

	mux := http.NewServeMux()
	NewHTTPServer(env.bot).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/meetups", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Calendar string `json:"calendar"`
		Meetups  []struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Start    int64  `json:"start"`
			Location string `json:"location"`
			Naddr    string `json:"naddr"`
		} `json:"meetups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "Einundzwanzig Meetups", body.Calendar)
	require.Len(t, body.Meetups, 1)
	assert.Equal(t, "Stammtisch Zürich", body.Meetups[0].Title)
	assert.EqualValues(t, 1767200400, body.Meetups[0].Start)
	assert.Equal(t, "Rathausplatz", body.Meetups[0].Location)
	assert.True(t, strings.HasPrefix(body.Meetups[0].Naddr, "naddr1"))
}

func TestHandleMeetups_FiltersTombstoned(t *testing.T) {
	env := newTestEnv(t)
	deletedID := strings.Repeat("dd", 32)
	env.resolver.calendar = relay.Calendar{
		Name: "Meetups",
		Events: []nostr.Event{
			{ID: deletedID, Tags: [][]string{{"title", "Abgesagt"}}},
		},
	}
	env.resolver.deleted[deletedID] = true

	mux := http.NewServeMux()
	NewHTTPServer(env.bot).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/meetups", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Abgesagt")
}

func TestHandleMeetups_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	mux := http.NewServeMux()
	NewHTTPServer(env.bot).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/meetups", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
