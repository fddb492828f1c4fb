package geocoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Rathausplatz Zürich", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"display_name":"Rathausplatz, Zürich, Schweiz","lat":"47.37","lon":"8.54","osm_type":"node","osm_id":123456}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	place, err := c.Lookup(context.Background(), "Rathausplatz Zürich")
	require.NoError(t, err)
	require.NotNil(t, place)

	assert.Equal(t, "Rathausplatz, Zürich, Schweiz", place.DisplayName)
	assert.Equal(t, "47.37", place.Lat)
	assert.Equal(t, "8.54", place.Lon)
	assert.Equal(t, "node", place.OSMType)
	assert.EqualValues(t, 123456, place.OSMID)
}

func TestLookup_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	place, err := c.Lookup(context.Background(), "nirgendwo xyz")
	require.NoError(t, err)
	assert.Nil(t, place)
}

func TestLookup_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Lookup(context.Background(), "Rathausplatz")
	assert.Error(t, err)
}

func TestLookup_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Lookup(context.Background(), "Rathausplatz")
	assert.Error(t, err)
}
