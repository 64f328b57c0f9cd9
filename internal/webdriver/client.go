// Package webdriver is a minimal W3C WebDriver client for driving the
// portal through a remote browser hub. Only the capabilities the session
// driver needs are implemented: find elements, click, send keys, read text
// and geometry, screenshot, page source.
package webdriver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/slotseeker/slotseeker/internal/portal"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

// elementKey is the W3C web element identifier property.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// Client talks to a WebDriver hub (e.g. a Selenium grid or geckodriver).
type Client struct {
	baseURL    string
	browser    string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithBrowser sets the browser name requested in the session capabilities.
func WithBrowser(name string) ClientOption {
	return func(c *Client) { c.browser = name }
}

// NewClient creates a client for the hub at baseURL
// (e.g. "http://127.0.0.1:4444").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		browser: "firefox",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSession opens a browser session sized for the portal's layout and
// returns it as a portal.Document.
func (c *Client) NewSession(ctx context.Context) (*Session, error) {
	body := map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": map[string]any{"browserName": c.browser},
		},
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.do(ctx, http.MethodPost, "/session", body, &out); err != nil {
		return nil, fmt.Errorf("webdriver: create session: %w", err)
	}

	s := &Session{client: c, id: out.SessionID}

	// The portal's card layout reflows below a certain width, which moves
	// the section headers the field-location strategy anchors on.
	rect := map[string]any{"width": 1400, "height": 900}
	if err := c.do(ctx, http.MethodPost, s.path("/window/rect"), rect, nil); err != nil {
		c.logger.Warn("webdriver: set window size failed", "error", err)
	}

	c.logger.Debug("webdriver session created", "session_id", out.SessionID)
	return s, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var wdErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(envelope.Value, &wdErr)
		if wdErr.Error == "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s: %s", wdErr.Error, wdErr.Message)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Value, out); err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
	}
	return nil
}

// Session is one live browser session. It implements portal.Document.
type Session struct {
	client *Client
	id     string
}

var _ portal.Document = (*Session)(nil)

func (s *Session) path(suffix string) string {
	return "/session/" + s.id + suffix
}

// Navigate loads the given URL.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.client.do(ctx, http.MethodPost, s.path("/url"), map[string]string{"url": url}, nil); err != nil {
		return fmt.Errorf("webdriver: navigate: %w", err)
	}
	return nil
}

// ElementsByClass finds elements by compound CSS class.
func (s *Session) ElementsByClass(ctx context.Context, classes string) ([]portal.Element, error) {
	return s.find(ctx, "css selector", "."+classes)
}

// ElementsByTag finds elements by tag name.
func (s *Session) ElementsByTag(ctx context.Context, tag string) ([]portal.Element, error) {
	return s.find(ctx, "tag name", tag)
}

// ElementsByName finds elements by their name attribute.
func (s *Session) ElementsByName(ctx context.Context, name string) ([]portal.Element, error) {
	return s.find(ctx, "css selector", fmt.Sprintf("[name=%q]", name))
}

func (s *Session) find(ctx context.Context, using, value string) ([]portal.Element, error) {
	body := map[string]string{"using": using, "value": value}
	var refs []map[string]string
	if err := s.client.do(ctx, http.MethodPost, s.path("/elements"), body, &refs); err != nil {
		return nil, fmt.Errorf("webdriver: find %q: %w", value, err)
	}
	elements := make([]portal.Element, 0, len(refs))
	for _, ref := range refs {
		id, ok := ref[elementKey]
		if !ok {
			continue
		}
		elements = append(elements, &element{session: s, id: id})
	}
	return elements, nil
}

// PageSource returns the current page HTML.
func (s *Session) PageSource(ctx context.Context) (string, error) {
	var source string
	if err := s.client.do(ctx, http.MethodGet, s.path("/source"), nil, &source); err != nil {
		return "", fmt.Errorf("webdriver: page source: %w", err)
	}
	return source, nil
}

// Screenshot captures the viewport as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var encoded string
	if err := s.client.do(ctx, http.MethodGet, s.path("/screenshot"), nil, &encoded); err != nil {
		return nil, fmt.Errorf("webdriver: screenshot: %w", err)
	}
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("webdriver: decode screenshot: %w", err)
	}
	return png, nil
}

// Close ends the browser session.
func (s *Session) Close(ctx context.Context) error {
	if err := s.client.do(ctx, http.MethodDelete, s.path(""), nil, nil); err != nil {
		return fmt.Errorf("webdriver: delete session: %w", err)
	}
	return nil
}

type element struct {
	session *Session
	id      string
}

func (e *element) path(suffix string) string {
	return e.session.path("/element/" + e.id + suffix)
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.session.client.do(ctx, http.MethodGet, e.path("/text"), nil, &text); err != nil {
		return "", fmt.Errorf("webdriver: element text: %w", err)
	}
	return text, nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.session.client.do(ctx, http.MethodPost, e.path("/click"), struct{}{}, nil); err != nil {
		return fmt.Errorf("webdriver: click: %w", err)
	}
	return nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	body := map[string]string{"text": text}
	if err := e.session.client.do(ctx, http.MethodPost, e.path("/value"), body, nil); err != nil {
		return fmt.Errorf("webdriver: send keys: %w", err)
	}
	return nil
}

func (e *element) Rect(ctx context.Context) (portal.Rect, error) {
	var rect portal.Rect
	var out struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := e.session.client.do(ctx, http.MethodGet, e.path("/rect"), nil, &out); err != nil {
		return rect, fmt.Errorf("webdriver: element rect: %w", err)
	}
	return portal.Rect{X: out.X, Y: out.Y, Width: out.Width, Height: out.Height}, nil
}
