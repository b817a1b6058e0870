package carousel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/platos/internal/domain"
)

type stubLister struct {
	items []*domain.MenuItem
	err   error
	calls int
}

func (s *stubLister) ListActive(_ context.Context) ([]*domain.MenuItem, error) {
	s.calls++
	return s.items, s.err
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func items(n int) []*domain.MenuItem {
	out := make([]*domain.MenuItem, n)
	for i := range out {
		out[i] = &domain.MenuItem{
			ID:       fmt.Sprintf("id-%d", i),
			Title:    fmt.Sprintf("Plato %d", i),
			ImageURL: fmt.Sprintf("https://cdn.example/%d.jpg", i),
			Active:   true,
		}
	}
	return out
}

func newTestCarousel(lister Lister) (*Carousel, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(lister, Options{Interval: 8 * time.Second, Pause: 30 * time.Second}, slog.Default())
	c.now = clock.now
	return c, clock
}

func TestInitialStateIsLoading(t *testing.T) {
	c, _ := newTestCarousel(&stubLister{})
	assert.Equal(t, StateLoading, c.Snapshot().State)
}

func TestLoadStates(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		c, _ := newTestCarousel(&stubLister{err: errors.New("backend down")})
		require.Error(t, c.Load(context.Background()))

		snap := c.Snapshot()
		assert.Equal(t, StateError, snap.State)
		assert.Equal(t, "backend down", snap.Error)
		assert.Nil(t, snap.Item)
	})

	t.Run("empty", func(t *testing.T) {
		c, _ := newTestCarousel(&stubLister{items: []*domain.MenuItem{}})
		require.NoError(t, c.Load(context.Background()))
		assert.Equal(t, StateEmpty, c.Snapshot().State)
		assert.False(t, c.Tick())
	})

	t.Run("ready", func(t *testing.T) {
		c, _ := newTestCarousel(&stubLister{items: items(3)})
		require.NoError(t, c.Load(context.Background()))

		snap := c.Snapshot()
		assert.Equal(t, StateReady, snap.State)
		assert.Equal(t, 0, snap.Index)
		assert.Equal(t, 3, snap.Count)
		require.NotNil(t, snap.Item)
		assert.Equal(t, "id-0", snap.Item.ID)
		assert.Equal(t, "https://cdn.example/0.jpg", snap.ImageURL)
	})
}

func TestRetryAfterError(t *testing.T) {
	lister := &stubLister{err: errors.New("backend down")}
	c, _ := newTestCarousel(lister)
	require.Error(t, c.Load(context.Background()))

	lister.err = nil
	lister.items = items(2)
	require.NoError(t, c.Retry(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 2, lister.calls)
}

func TestTickWraps(t *testing.T) {
	c, _ := newTestCarousel(&stubLister{items: items(3)})
	require.NoError(t, c.Load(context.Background()))

	var seen []int
	for range 4 {
		require.True(t, c.Tick())
		seen = append(seen, c.Snapshot().Index)
	}
	assert.Equal(t, []int{1, 2, 0, 1}, seen)
}

func TestPrevWrapsToEnd(t *testing.T) {
	c, _ := newTestCarousel(&stubLister{items: items(3)})
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.Prev())
	assert.Equal(t, 2, c.Snapshot().Index)
	require.NoError(t, c.Next())
	assert.Equal(t, 0, c.Snapshot().Index)
}

func TestManualNavigationPausesRotation(t *testing.T) {
	c, clock := newTestCarousel(&stubLister{items: items(4)})
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.Jump(2))
	assert.True(t, c.Snapshot().Paused)

	clock.advance(29 * time.Second)
	assert.False(t, c.Tick())
	assert.Equal(t, 2, c.Snapshot().Index)

	clock.advance(time.Second)
	assert.False(t, c.Snapshot().Paused)
	assert.True(t, c.Tick())
	assert.Equal(t, 3, c.Snapshot().Index)
}

func TestJumpOutOfRange(t *testing.T) {
	c, _ := newTestCarousel(&stubLister{items: items(2)})
	require.NoError(t, c.Load(context.Background()))

	assert.Error(t, c.Jump(2))
	assert.Error(t, c.Jump(-1))
	assert.Equal(t, 0, c.Snapshot().Index)
}

func TestNavigationRequiresReady(t *testing.T) {
	c, _ := newTestCarousel(&stubLister{items: []*domain.MenuItem{}})
	require.NoError(t, c.Load(context.Background()))

	assert.ErrorIs(t, c.Next(), ErrNotReady)
	assert.ErrorIs(t, c.Prev(), ErrNotReady)
	assert.ErrorIs(t, c.Jump(0), ErrNotReady)
}

func TestImageFailureFallsBackPerItem(t *testing.T) {
	list := items(2)
	list[1].ImageURL = ""
	c, _ := newTestCarousel(&stubLister{items: list})
	require.NoError(t, c.Load(context.Background()))

	c.MarkImageFailed("id-0")
	assert.Equal(t, DefaultPlaceholder, c.Snapshot().ImageURL)

	require.True(t, c.Tick())
	assert.Equal(t, DefaultPlaceholder, c.Snapshot().ImageURL, "item without image uses placeholder")

	c.MarkImageFailed("unknown")
	assert.Len(t, c.failedImages, 1)
}

func TestImageFailureDoesNotAffectOtherItems(t *testing.T) {
	c, _ := newTestCarousel(&stubLister{items: items(2)})
	require.NoError(t, c.Load(context.Background()))

	c.MarkImageFailed("id-0")
	require.True(t, c.Tick())
	assert.Equal(t, "https://cdn.example/1.jpg", c.Snapshot().ImageURL)
}

func TestImageFailureClearedWhenURLChanges(t *testing.T) {
	lister := &stubLister{items: items(2)}
	c, _ := newTestCarousel(lister)
	require.NoError(t, c.Load(context.Background()))

	c.MarkImageFailed("id-0")
	require.Equal(t, DefaultPlaceholder, c.Snapshot().ImageURL)

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, DefaultPlaceholder, c.Snapshot().ImageURL, "same broken URL stays on placeholder")

	fixed := items(2)
	fixed[0].ImageURL = "https://cdn.example/0-v2.jpg"
	lister.items = fixed
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, "https://cdn.example/0-v2.jpg", c.Snapshot().ImageURL)
	assert.Empty(t, c.failedImages)
}

func TestReloadResetsIndexWhenCountChanges(t *testing.T) {
	lister := &stubLister{items: items(3)}
	c, _ := newTestCarousel(lister)
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.Jump(2))

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 2, c.Snapshot().Index, "same count keeps position")

	c.MarkImageFailed("id-1")
	lister.items = items(1)
	require.NoError(t, c.Load(context.Background()))
	snap := c.Snapshot()
	assert.Equal(t, 0, snap.Index)
	assert.False(t, snap.Paused)
	assert.NotContains(t, c.failedImages, "id-1")
}

func TestRunStopsOnCancel(t *testing.T) {
	lister := &stubLister{items: items(2)}
	c := New(lister, Options{Interval: time.Millisecond}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return c.Snapshot().State == StateReady
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultInterval, o.Interval)
	assert.Equal(t, DefaultPlaceholder, o.Placeholder)
}
