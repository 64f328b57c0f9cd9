package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	philadelphia = Point{Lat: 39.9526, Lng: -75.1652}
	newYork      = Point{Lat: 40.7128, Lng: -74.0060}
	norristown   = Point{Lat: 40.1215, Lng: -75.3399}
)

func TestGreatCircleMiles(t *testing.T) {
	assert.InDelta(t, 80.6, GreatCircleMiles(philadelphia, newYork), 1.0)
	assert.Zero(t, GreatCircleMiles(philadelphia, philadelphia))
}

func TestEstimatedRoadMilesInflatesLongTrips(t *testing.T) {
	circle := GreatCircleMiles(philadelphia, newYork)
	road := EstimatedRoadMiles(philadelphia, newYork)
	assert.Greater(t, road, circle)
}

func TestRankTargets(t *testing.T) {
	candidates := []Candidate{
		{Zip: "10001", Loc: newYork},    // too far
		{Zip: "19403", Loc: norristown}, // near
		{Zip: "19107", Loc: philadelphia},
		{Zip: "19107", Loc: philadelphia}, // duplicate region
	}
	home := Point{Lat: 40.08, Lng: -75.30} // between the two close ones

	zips := RankTargets(home, candidates, 40)
	require.Len(t, zips, 2)
	assert.Equal(t, "19403", zips[0])
	assert.Equal(t, "19107", zips[1])
}

func TestLocateCachesToDisk(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Contains(t, r.URL.Path, "Main")
		fmt.Fprint(w, `{"features":[{"center":[-75.3399,40.1215]}]}`)
	}))
	defer ts.Close()

	cachePath := filepath.Join(t.TempDir(), "mapbox.json")
	g := NewGeocoder("test-token", cachePath, WithBaseURL(ts.URL))

	p, err := g.Locate(context.Background(), "100 Main St, Norristown, PA, 19403")
	require.NoError(t, err)
	assert.InDelta(t, 40.1215, p.Lat, 1e-6)
	assert.InDelta(t, -75.3399, p.Lng, 1e-6)
	assert.Equal(t, 1, requests)

	// Second lookup is served from memory.
	_, err = g.Locate(context.Background(), "100 Main St, Norristown, PA, 19403")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	// A fresh geocoder reads the persisted cache and never hits the API.
	g2 := NewGeocoder("test-token", cachePath, WithBaseURL(ts.URL))
	p2, err := g2.Locate(context.Background(), "100 Main St, Norristown, PA, 19403")
	require.NoError(t, err)
	assert.Equal(t, p, p2)
	assert.Equal(t, 1, requests)
}

func TestLocateNoFeatures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"features":[]}`)
	}))
	defer ts.Close()

	g := NewGeocoder("test-token", filepath.Join(t.TempDir(), "mapbox.json"), WithBaseURL(ts.URL))
	_, err := g.Locate(context.Background(), "nowhere")
	assert.ErrorContains(t, err, "no match")
}
