// Package portal defines the capability set the session driver needs from
// the external conversational portal: query currently rendered elements,
// submit synthetic input, and wait for new elements to appear within a
// bounded timeout. Concrete implementations bind these to a remote
// browser-automation transport; tests bind them to a scripted fake.
package portal

import (
	"context"
	"errors"
	"time"
)

// Synthetic key codepoints per the WebDriver spec, usable in SendKeys input.
const (
	KeyTab  = ""
	KeyDown = ""
)

// ErrWaitTimeout is returned when a bounded wait elapses without the portal
// rendering the expected elements.
var ErrWaitTimeout = errors.New("portal: wait timed out")

// Rect is an element's position and size in the rendered page.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Element is one rendered interactive element.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Rect(ctx context.Context) (Rect, error)
}

// Document is one live portal session's rendered page.
type Document interface {
	Navigate(ctx context.Context, url string) error

	// ElementsByClass finds elements carrying all the given CSS classes;
	// compound classes are dot-separated ("ac-pushButton.style-default").
	ElementsByClass(ctx context.Context, classes string) ([]Element, error)
	ElementsByTag(ctx context.Context, tag string) ([]Element, error)
	ElementsByName(ctx context.Context, name string) ([]Element, error)

	PageSource(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)

	Close(ctx context.Context) error
}

// Fetch returns the current matches for some element query.
type Fetch func(ctx context.Context) ([]Element, error)

// WaitForMore polls fetch until it yields more than n elements, a
// chat-style portal's only reliable signal that the next screen rendered.
// The optional abort callback runs each poll and cancels the wait by
// returning an error (e.g. when a portal-wide failure marker appears).
func WaitForMore(ctx context.Context, fetch Fetch, n int, timeout, poll time.Duration, abort func(context.Context) error) ([]Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		elements, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(elements) > n {
			return elements, nil
		}
		if abort != nil {
			if err := abort(ctx); err != nil {
				return nil, err
			}
		}
		if time.Now().After(deadline) {
			return nil, ErrWaitTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(poll):
		}
	}
}
