// Package geo resolves street addresses to coordinates and ranks pharmacy
// regions by driving distance from a patient's home. It backs the queue
// importer, which turns a max-travel-distance preference into a concrete
// ordered list of target postal codes.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/slotseeker/slotseeker/pkg/logging"
)

const defaultBaseURL = "https://api.mapbox.com"

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder resolves addresses through the Mapbox places API. Results are
// cached in a JSON file so re-running the importer costs no API quota for
// addresses it has already seen.
type Geocoder struct {
	baseURL    string
	token      string
	proximity  string
	cachePath  string
	cache      map[string]Point
	httpClient *http.Client
	logger     *logging.Logger
}

// GeocoderOption configures a Geocoder.
type GeocoderOption func(*Geocoder)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(u string) GeocoderOption {
	return func(g *Geocoder) { g.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) GeocoderOption {
	return func(g *Geocoder) { g.httpClient = client }
}

// WithProximity biases results toward a "lng,lat" anchor.
func WithProximity(p string) GeocoderOption {
	return func(g *Geocoder) { g.proximity = p }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) GeocoderOption {
	return func(g *Geocoder) { g.logger = logger }
}

// NewGeocoder creates a geocoder with a persistent cache at cachePath. A
// missing or unreadable cache file starts empty.
func NewGeocoder(token, cachePath string, opts ...GeocoderOption) *Geocoder {
	g := &Geocoder{
		baseURL:    defaultBaseURL,
		token:      token,
		proximity:  "-75.4,40.0",
		cachePath:  cachePath,
		cache:      map[string]Point{},
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if data, err := os.ReadFile(cachePath); err == nil {
		if err := json.Unmarshal(data, &g.cache); err != nil {
			g.logger.Warn("geocode cache unreadable, starting empty", "path", cachePath, "error", err)
			g.cache = map[string]Point{}
		}
	}
	return g
}

type mapboxResponse struct {
	Features []struct {
		Center [2]float64 `json:"center"` // lng, lat
	} `json:"features"`
}

// Locate resolves one address, consulting the cache first.
func (g *Geocoder) Locate(ctx context.Context, address string) (Point, error) {
	if p, ok := g.cache[address]; ok {
		return p, nil
	}

	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?country=us&types=address&autocomplete=false&proximity=%s&access_token=%s",
		g.baseURL, url.PathEscape(address), url.QueryEscape(g.proximity), url.QueryEscape(g.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Point{}, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geo: geocode %q: %w", address, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("geo: geocode %q: status %d", address, resp.StatusCode)
	}

	var body mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Point{}, fmt.Errorf("geo: geocode %q: %w", address, err)
	}
	if len(body.Features) == 0 {
		return Point{}, fmt.Errorf("geo: no match for %q", address)
	}

	p := Point{Lat: body.Features[0].Center[1], Lng: body.Features[0].Center[0]}
	g.cache[address] = p
	g.persist()
	return p, nil
}

// persist rewrites the cache file after every new resolution, matching the
// importer's run-and-rerun usage where partial progress matters.
func (g *Geocoder) persist() {
	if g.cachePath == "" {
		return
	}
	data, err := json.Marshal(g.cache)
	if err == nil {
		err = os.WriteFile(g.cachePath, data, 0o644)
	}
	if err != nil {
		g.logger.Warn("geocode cache write failed", "path", g.cachePath, "error", err)
	}
}
