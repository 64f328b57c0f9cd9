package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	s := NewServer(":0", func() Snapshot { return Snapshot{} }, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestStatusReportsSnapshot(t *testing.T) {
	snap := Snapshot{
		Bot:       "weis_pa",
		StartedAt: time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC),
		Pending:   4,
		Bookings:  2,
	}
	s := NewServer(":0", func() Snapshot { return snap }, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "weis_pa", got.Bot)
	assert.Equal(t, 4, got.Pending)
	assert.Equal(t, 2, got.Bookings)
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer(":0", func() Snapshot { return Snapshot{} }, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
