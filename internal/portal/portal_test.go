package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubElement struct{}

func (stubElement) Text(context.Context) (string, error)    { return "", nil }
func (stubElement) Click(context.Context) error             { return nil }
func (stubElement) SendKeys(context.Context, string) error  { return nil }
func (stubElement) Rect(context.Context) (Rect, error)      { return Rect{}, nil }

func TestWaitForMoreReturnsWhenCountGrows(t *testing.T) {
	calls := 0
	fetch := func(context.Context) ([]Element, error) {
		calls++
		if calls < 3 {
			return []Element{stubElement{}}, nil
		}
		return []Element{stubElement{}, stubElement{}}, nil
	}

	elements, err := WaitForMore(context.Background(), fetch, 1, time.Second, time.Millisecond, nil)
	require.NoError(t, err)
	assert.Len(t, elements, 2)
}

func TestWaitForMoreTimesOut(t *testing.T) {
	fetch := func(context.Context) ([]Element, error) {
		return []Element{stubElement{}}, nil
	}

	_, err := WaitForMore(context.Background(), fetch, 1, 20*time.Millisecond, 5*time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestWaitForMoreAborts(t *testing.T) {
	sentinel := errors.New("portal gave up")
	fetch := func(context.Context) ([]Element, error) { return nil, nil }
	abort := func(context.Context) error { return sentinel }

	_, err := WaitForMore(context.Background(), fetch, 0, time.Second, time.Millisecond, abort)
	assert.ErrorIs(t, err, sentinel)
}

func TestWaitForMoreHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(context.Context) ([]Element, error) { return nil, nil }
	_, err := WaitForMore(ctx, fetch, 0, time.Second, time.Millisecond, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
