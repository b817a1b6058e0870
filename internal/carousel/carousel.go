// Package carousel drives the rotating hero display of active menu items.
//
// A Carousel moves from Loading to one of Error, Empty or Ready. In Ready it
// advances its display index every Interval, wrapping at both ends. Manual
// navigation pauses the rotation for Pause before it resumes.
package carousel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/platos/internal/domain"
)

type State string

const (
	StateLoading State = "loading"
	StateError   State = "error"
	StateEmpty   State = "empty"
	StateReady   State = "ready"
)

const (
	DefaultInterval    = 8 * time.Second
	DefaultPause       = 30 * time.Second
	DefaultPlaceholder = "/placeholder.jpg"
)

var ErrNotReady = errors.New("carousel has no items to show")

// Lister fetches the items the carousel rotates through.
type Lister interface {
	ListActive(ctx context.Context) ([]*domain.MenuItem, error)
}

type Options struct {
	Interval    time.Duration
	Pause       time.Duration
	Placeholder string
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Pause < 0 {
		o.Pause = 0
	}
	if o.Placeholder == "" {
		o.Placeholder = DefaultPlaceholder
	}
	return o
}

// Snapshot is what a display renders.
type Snapshot struct {
	State    State            `json:"state"`
	Index    int              `json:"index"`
	Count    int              `json:"count"`
	Item     *domain.MenuItem `json:"item,omitempty"`
	ImageURL string           `json:"imageUrl,omitempty"`
	Paused   bool             `json:"paused"`
	Error    string           `json:"error,omitempty"`
}

type Carousel struct {
	lister Lister
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       State
	items       []*domain.MenuItem
	index       int
	err         error
	pausedUntil time.Time
	// failedImages maps an item id to the image URL that failed to load.
	failedImages map[string]string
}

func New(lister Lister, opts Options, logger *slog.Logger) *Carousel {
	return &Carousel{
		lister:       lister,
		opts:         opts.withDefaults(),
		logger:       logger,
		now:          time.Now,
		state:        StateLoading,
		failedImages: make(map[string]string),
	}
}

// Load fetches the active items and settles the state. The display index is
// kept when the item count is unchanged and reset otherwise.
func (c *Carousel) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.mu.Unlock()

	items, err := c.lister.ListActive(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		c.err = err
		c.items = nil
		c.index = 0
		c.logger.Warn("carousel load failed", "error", err)
		return err
	}

	c.err = nil
	if len(items) != len(c.items) {
		c.index = 0
		c.pausedUntil = time.Time{}
	}
	c.items = items
	c.pruneFailed()
	if len(items) == 0 {
		c.state = StateEmpty
		return nil
	}
	c.state = StateReady
	c.logger.Debug("carousel loaded", "count", len(items))
	return nil
}

// Retry re-issues the fetch after a failure.
func (c *Carousel) Retry(ctx context.Context) error {
	return c.Load(ctx)
}

// Run loads the items and then advances the display every Interval until ctx
// is done.
func (c *Carousel) Run(ctx context.Context) {
	if err := c.Load(ctx); err != nil && ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick advances to the next item unless the carousel is not ready or a
// manual navigation pause is in effect. It reports whether it advanced.
func (c *Carousel) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.pausedLocked() {
		return false
	}
	c.index = wrap(c.index+1, len(c.items))
	return true
}

func (c *Carousel) Next() error { return c.navigate(func(i, _ int) int { return i + 1 }) }

func (c *Carousel) Prev() error { return c.navigate(func(i, _ int) int { return i - 1 }) }

// Jump shows the item at index. Out of range indexes are rejected.
func (c *Carousel) Jump(index int) error {
	c.mu.Lock()
	n := len(c.items)
	c.mu.Unlock()
	if index < 0 || (n > 0 && index >= n) {
		return fmt.Errorf("index %d out of range [0, %d)", index, n)
	}
	return c.navigate(func(_, _ int) int { return index })
}

func (c *Carousel) navigate(move func(index, count int) int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	c.index = wrap(move(c.index, len(c.items)), len(c.items))
	c.pausedUntil = c.now().Add(c.opts.Pause)
	return nil
}

// MarkImageFailed makes the item fall back to the placeholder image. Other
// items are unaffected.
func (c *Carousel) MarkImageFailed(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.ID == id {
			c.failedImages[id] = item.ImageURL
			return
		}
	}
}

func (c *Carousel) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:  c.state,
		Index:  c.index,
		Count:  len(c.items),
		Paused: c.state == StateReady && c.pausedLocked(),
	}
	if c.err != nil {
		snap.Error = c.err.Error()
	}
	if c.state == StateReady {
		item := *c.items[c.index]
		snap.Item = &item
		snap.ImageURL = c.imageURL(&item)
	}
	return snap
}

func (c *Carousel) imageURL(item *domain.MenuItem) string {
	if failed, ok := c.failedImages[item.ID]; item.ImageURL == "" || (ok && failed == item.ImageURL) {
		return c.opts.Placeholder
	}
	return item.ImageURL
}

func (c *Carousel) pausedLocked() bool {
	return c.now().Before(c.pausedUntil)
}

// pruneFailed forgets failures of items that are no longer listed or whose
// image URL has changed since the failure.
func (c *Carousel) pruneFailed() {
	current := make(map[string]string, len(c.items))
	for _, item := range c.items {
		current[item.ID] = item.ImageURL
	}
	for id, failed := range c.failedImages {
		if url, ok := current[id]; !ok || url != failed {
			delete(c.failedImages, id)
		}
	}
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}
