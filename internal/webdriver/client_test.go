package webdriver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHub is a minimal WebDriver endpoint capturing what the client sends.
type fakeHub struct {
	mux      *http.ServeMux
	requests []string
}

func newFakeHub(t *testing.T) (*fakeHub, *httptest.Server) {
	t.Helper()
	hub := &fakeHub{mux: http.NewServeMux()}

	hub.mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, map[string]any{"sessionId": "abc123", "capabilities": map[string]any{}})
	})
	hub.mux.HandleFunc("POST /session/abc123/window/rect", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, nil)
	})
	hub.mux.HandleFunc("POST /session/abc123/url", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, nil)
	})
	hub.mux.HandleFunc("POST /session/abc123/elements", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Using string `json:"using"`
			Value string `json:"value"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		hub.requests = append(hub.requests, body.Using+"|"+body.Value)
		writeValue(w, []map[string]string{{elementKey: "el-1"}, {elementKey: "el-2"}})
	})
	hub.mux.HandleFunc("GET /session/abc123/element/el-1/text", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, "Schedule a new appointment")
	})
	hub.mux.HandleFunc("POST /session/abc123/element/el-1/click", func(w http.ResponseWriter, r *http.Request) {
		hub.requests = append(hub.requests, "click el-1")
		writeValue(w, nil)
	})
	hub.mux.HandleFunc("GET /session/abc123/element/el-1/rect", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, map[string]float64{"x": 10, "y": 200, "width": 300, "height": 120})
	})
	hub.mux.HandleFunc("GET /session/abc123/screenshot", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, base64.StdEncoding.EncodeToString([]byte("png-bytes")))
	})
	hub.mux.HandleFunc("GET /session/abc123/element/missing/text", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeValue(w, map[string]string{"error": "no such element", "message": "gone"})
	})

	server := httptest.NewServer(hub.mux)
	t.Cleanup(server.Close)
	return hub, server
}

func writeValue(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"value": v})
}

func TestSessionLifecycle(t *testing.T) {
	hub, server := newFakeHub(t)
	client := NewClient(server.URL)
	ctx := context.Background()

	session, err := client.NewSession(ctx)
	require.NoError(t, err)
	require.NoError(t, session.Navigate(ctx, "file:///portal.html"))

	elements, err := session.ElementsByClass(ctx, "ac-pushButton.style-default")
	require.NoError(t, err)
	assert.Len(t, elements, 2)
	assert.Contains(t, hub.requests, "css selector|.ac-pushButton.style-default")

	_, err = session.ElementsByName(ctx, "actionType")
	require.NoError(t, err)
	assert.Contains(t, hub.requests, `css selector|[name="actionType"]`)

	_, err = session.ElementsByTag(ctx, "button")
	require.NoError(t, err)
	assert.Contains(t, hub.requests, "tag name|button")
}

func TestElementOperations(t *testing.T) {
	hub, server := newFakeHub(t)
	client := NewClient(server.URL)
	ctx := context.Background()

	session, err := client.NewSession(ctx)
	require.NoError(t, err)
	elements, err := session.ElementsByTag(ctx, "label")
	require.NoError(t, err)

	text, err := elements[0].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Schedule a new appointment", text)

	require.NoError(t, elements[0].Click(ctx))
	assert.Contains(t, hub.requests, "click el-1")

	rect, err := elements[0].Rect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200.0, rect.Y)
	assert.Equal(t, 120.0, rect.Height)
}

func TestScreenshotDecodesBase64(t *testing.T) {
	_, server := newFakeHub(t)
	client := NewClient(server.URL)
	ctx := context.Background()

	session, err := client.NewSession(ctx)
	require.NoError(t, err)

	png, err := session.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), png)
}

func TestErrorEnvelope(t *testing.T) {
	_, server := newFakeHub(t)
	client := NewClient(server.URL)
	ctx := context.Background()

	session, err := client.NewSession(ctx)
	require.NoError(t, err)

	missing := &element{session: session, id: "missing"}
	_, err = missing.Text(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such element")
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	client := NewClient("http://127.0.0.1:4444/")
	assert.Equal(t, "http://127.0.0.1:4444", client.baseURL)
}

func ExampleNewClient() {
	client := NewClient("http://127.0.0.1:4444", WithBrowser("firefox"))
	fmt.Println(client.browser)
	// Output: firefox
}
