// Package optimistic drives the apply-then-reconcile protocol every logging
// surface uses: the new state shows immediately, the remote mutation runs,
// and on any failure the prior state comes back unconditionally. Each call
// returns an explicit handle instead of firing UI callbacks, so callers and
// tests await completion deterministically.
package optimistic

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arnold/pursue-api/internal/progress"
)

type State int

const (
	StateIdle State = iota
	StateApplied
	StateConfirmed
	StateRolledBack
)

var (
	// ErrActionInFlight means a mutation on this goal is still unconfirmed;
	// the triggering control stays disabled so a second optimistic apply
	// cannot stack on top of it.
	ErrActionInFlight = errors.New("a mutation is already in flight for this goal")
	ErrUndoExpired    = errors.New("the undo window has elapsed")
	// ErrUnauthorized is returned by remotes when the session is invalid.
	ErrUnauthorized = errors.New("unauthorized")
)

// FailureKind classifies why a mutation failed, so the surface can decide
// between retry, re-auth, and the edit path.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureNetwork
	FailureTimeout
	FailureConflict // duplicate period entry; retry as edit
	FailureUnauthorized
)

// Failure wraps a remote error with its classification. Local state has
// already been rolled back by the time a Failure surfaces.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string { return f.Err.Error() }
func (f *Failure) Unwrap() error { return f.Err }

// Classify maps a remote error onto the failure taxonomy.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, progress.ErrDuplicatePeriodEntry):
		return FailureConflict
	case errors.Is(err, ErrUnauthorized):
		return FailureUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return FailureTimeout
		}
		return FailureNetwork
	}
	return FailureUnknown
}

// Presentation is the local view state a logging surface renders: the
// completed flag plus the raw period total (uncapped) and display percent.
type Presentation struct {
	Completed   bool
	Accumulated float64
	Percent     *int
}

// Mutation performs the remote create or replace and returns the resulting
// entry id.
type Mutation func(ctx context.Context) (uuid.UUID, error)

// DeleteFunc removes an entry remotely; used by the undo flow.
type DeleteFunc func(ctx context.Context, entryID uuid.UUID) error

// Controller serializes optimistic mutations for one goal surface.
type Controller struct {
	mu          sync.Mutex
	state       State
	view        Presentation
	prior       Presentation
	deleteEntry DeleteFunc
	undoWindow  time.Duration
	now         func() time.Time
}

func NewController(deleteEntry DeleteFunc, undoWindow time.Duration) *Controller {
	return &Controller{
		deleteEntry: deleteEntry,
		undoWindow:  undoWindow,
		now:         time.Now,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns what the surface currently renders.
func (c *Controller) View() Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// SetView seeds the presentation from server state on screen load.
func (c *Controller) SetView(p Presentation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = p
}

// Perform applies next to the local view, runs the remote mutation, and
// reconciles. On success the returned Undo is live until the window elapses.
// On failure the prior view is restored before the classified error returns —
// local state never stays diverged from confirmed server state.
func (c *Controller) Perform(ctx context.Context, next Presentation, m Mutation) (*Undo, error) {
	c.mu.Lock()
	if c.state == StateApplied {
		c.mu.Unlock()
		return nil, ErrActionInFlight
	}
	c.prior = c.view
	c.view = next
	c.state = StateApplied
	c.mu.Unlock()

	entryID, err := m(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.view = c.prior
		c.state = StateRolledBack
		return nil, &Failure{Kind: Classify(err), Err: err}
	}

	c.state = StateConfirmed
	return &Undo{
		controller: c,
		entryID:    entryID,
		prior:      c.prior,
		deadline:   c.now().Add(c.undoWindow),
	}, nil
}

// Undo is the time-bounded offer shown after a confirmed log (alongside the
// photo-attachment prompt). Once the window elapses the offer is withdrawn;
// nothing in flight needs cancelling since the mutation already completed.
type Undo struct {
	controller *Controller
	entryID    uuid.UUID
	prior      Presentation
	deadline   time.Time
	used       bool
}

func (u *Undo) EntryID() uuid.UUID { return u.entryID }

// Expired reports whether the offer has been withdrawn.
func (u *Undo) Expired() bool {
	return u.controller.now().After(u.deadline)
}

// Invoke deletes the confirmed entry and restores the pre-apply view. If the
// remote delete fails, the failure surfaces separately and the confirmed
// view stays — the delete may have partially succeeded, so re-applying the
// optimistic state would be a guess.
func (u *Undo) Invoke(ctx context.Context) error {
	c := u.controller
	c.mu.Lock()
	if u.used || c.now().After(u.deadline) {
		c.mu.Unlock()
		return ErrUndoExpired
	}
	u.used = true
	c.mu.Unlock()

	if err := c.deleteEntry(ctx, u.entryID); err != nil {
		return &Failure{Kind: Classify(err), Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = u.prior
	c.state = StateRolledBack
	return nil
}
