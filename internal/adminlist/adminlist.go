// Package adminlist keeps the admin's view of the menu item list. Changes are
// applied optimistically through Reduce; when the server rejects one, the
// list is replaced by a fresh snapshot from the server.
package adminlist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vbonduro/platos/internal/domain"
)

// FailureMessage is shown for any failed operation.
const FailureMessage = "the operation failed; the list was reloaded from the server"

type State struct {
	Items   []domain.MenuItem
	Loading bool
	// Stale is set by a failed operation until the next successful load.
	Stale bool
	// Error is the message of the last failure, cleared by the next request.
	Error string
}

type Action interface {
	apply(State) State
}

type Loaded struct{ Items []*domain.MenuItem }

type LoadFailed struct{ Err error }

type ToggleRequested struct{ ID string }

type RemoveRequested struct{ ID string }

// Saved replaces the local copy with the server's version of the item.
type Saved struct{ Item domain.MenuItem }

// OperationFailed marks the list as stale until the next Loaded.
type OperationFailed struct{ Err error }

// Initial is the state before the first load.
func Initial() State { return State{Loading: true} }

// Reduce returns the state after action. s is not modified.
func Reduce(s State, action Action) State {
	s.Items = append([]domain.MenuItem(nil), s.Items...)
	return action.apply(s)
}

func (a Loaded) apply(s State) State {
	s.Stale = false
	s.Items = make([]domain.MenuItem, 0, len(a.Items))
	for _, item := range a.Items {
		s.Items = append(s.Items, *item)
	}
	s.Loading = false
	return s
}

func (a LoadFailed) apply(s State) State {
	s.Loading = false
	if !s.Stale {
		s.Error = a.Err.Error()
	}
	return s
}

func (a ToggleRequested) apply(s State) State {
	s.Error = ""
	if i := indexOf(s.Items, a.ID); i >= 0 {
		s.Items[i].Active = !s.Items[i].Active
	}
	return s
}

func (a RemoveRequested) apply(s State) State {
	s.Error = ""
	if i := indexOf(s.Items, a.ID); i >= 0 {
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
	}
	return s
}

func (a Saved) apply(s State) State {
	if i := indexOf(s.Items, a.Item.ID); i >= 0 {
		s.Items[i] = a.Item
	}
	return s
}

func (a OperationFailed) apply(s State) State {
	s.Loading = true
	s.Stale = true
	s.Error = FailureMessage
	return s
}

func indexOf(items []domain.MenuItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// API is the subset of the items client the controller drives.
type API interface {
	List(ctx context.Context) ([]*domain.MenuItem, error)
	ToggleActive(ctx context.Context, id string) (*domain.MenuItem, error)
	Delete(ctx context.Context, id string) (string, error)
}

// Controller dispatches actions around API calls.
type Controller struct {
	api    API
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

func NewController(api API, logger *slog.Logger) *Controller {
	return &Controller{api: api, logger: logger, state: Initial()}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Reduce(c.state, noop{})
}

func (c *Controller) dispatch(a Action) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, a)
	return c.state
}

// Refresh replaces the list with the server's.
func (c *Controller) Refresh(ctx context.Context) error {
	items, err := c.api.List(ctx)
	if err != nil {
		c.dispatch(LoadFailed{Err: err})
		return err
	}
	c.dispatch(Loaded{Items: items})
	return nil
}

func (c *Controller) Toggle(ctx context.Context, id string) error {
	c.dispatch(ToggleRequested{ID: id})
	item, err := c.api.ToggleActive(ctx, id)
	if err != nil {
		return c.fail(ctx, "toggle", id, err)
	}
	c.dispatch(Saved{Item: *item})
	return nil
}

func (c *Controller) Remove(ctx context.Context, id string) error {
	c.dispatch(RemoveRequested{ID: id})
	if _, err := c.api.Delete(ctx, id); err != nil {
		return c.fail(ctx, "remove", id, err)
	}
	return nil
}

// fail records the failure and resyncs from the server. The operation's error
// is returned even when the resync succeeds.
func (c *Controller) fail(ctx context.Context, op, id string, err error) error {
	c.logger.Warn("admin list operation failed", "op", op, "id", id, "error", err)
	c.dispatch(OperationFailed{Err: err})
	if rerr := c.Refresh(ctx); rerr != nil {
		c.logger.Warn("admin list resync failed", "error", rerr)
	}
	return err
}

type noop struct{}

func (noop) apply(s State) State { return s }
