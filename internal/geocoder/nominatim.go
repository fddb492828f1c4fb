// Package geocoder resolves free-text location queries against the Nominatim
// search API.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Place is a single geocoder result.
type Place struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	OSMType     string `json:"osm_type"`
	OSMID       int64  `json:"osm_id"`
}

// Client queries Nominatim. The zero value is not usable; use NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Nominatim client. baseURL may be empty for the public
// instance.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Lookup resolves a free-text query to the best matching place, or nil when
// nothing matches.
func (c *Client) Lookup(ctx context.Context, query string) (*Place, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocoder request: %w", err)
	}
	// Nominatim usage policy requires an identifying UA.
	req.Header.Set("User-Agent", "stammtischbot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var places []Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}

	if len(places) == 0 {
		c.logger.Info("Geocoder found no match", zap.String("query", query))
		return nil, nil
	}

	c.logger.Info("Geocoder match",
		zap.String("query", query),
		zap.String("display_name", places[0].DisplayName),
	)
	return &places[0], nil
}
