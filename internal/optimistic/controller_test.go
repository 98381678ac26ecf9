package optimistic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arnold/pursue-api/internal/progress"
)

func intPtr(v int) *int { return &v }

func noDelete(ctx context.Context, id uuid.UUID) error { return nil }

func TestPerformConfirms(t *testing.T) {
	c := NewController(noDelete, 5*time.Second)
	c.SetView(Presentation{})

	entryID := uuid.New()
	next := Presentation{Completed: true, Accumulated: 1}
	undo, err := c.Perform(context.Background(), next, func(ctx context.Context) (uuid.UUID, error) {
		return entryID, nil
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if c.State() != StateConfirmed {
		t.Errorf("state = %v, want Confirmed", c.State())
	}
	if got := c.View(); got != next {
		t.Errorf("view = %+v, want %+v", got, next)
	}
	if undo.EntryID() != entryID {
		t.Errorf("undo entry = %s, want %s", undo.EntryID(), entryID)
	}
}

func TestPerformRollsBackOnFailure(t *testing.T) {
	c := NewController(noDelete, 5*time.Second)
	before := Presentation{Completed: false, Accumulated: 20, Percent: intPtr(40)}
	c.SetView(before)

	remoteErr := errors.New("connection reset")
	_, err := c.Perform(context.Background(),
		Presentation{Completed: true, Accumulated: 50, Percent: intPtr(100)},
		func(ctx context.Context) (uuid.UUID, error) {
			// The optimistic state is visible while the call is in flight.
			if v := c.View(); !v.Completed {
				t.Error("optimistic view should show the applied state during the call")
			}
			return uuid.Nil, remoteErr
		})
	if err == nil {
		t.Fatal("Perform should fail")
	}
	if c.State() != StateRolledBack {
		t.Errorf("state = %v, want RolledBack", c.State())
	}
	if got := c.View(); got != before {
		t.Errorf("view = %+v, want pre-apply %+v", got, before)
	}
}

func TestFailureClassification(t *testing.T) {
	tests := []struct {
		err  error
		want FailureKind
	}{
		{progress.ErrDuplicatePeriodEntry, FailureConflict},
		{ErrUnauthorized, FailureUnauthorized},
		{context.DeadlineExceeded, FailureTimeout},
		{errors.New("something else"), FailureUnknown},
	}
	for _, tt := range tests {
		c := NewController(noDelete, time.Second)
		_, err := c.Perform(context.Background(), Presentation{}, func(ctx context.Context) (uuid.UUID, error) {
			return uuid.Nil, tt.err
		})
		var f *Failure
		if !errors.As(err, &f) {
			t.Fatalf("err = %v, want *Failure", err)
		}
		if f.Kind != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, f.Kind, tt.want)
		}
		if !errors.Is(err, tt.err) {
			t.Errorf("Failure should unwrap to the remote error %v", tt.err)
		}
	}
}

func TestPerformSerializesInFlightActions(t *testing.T) {
	c := NewController(noDelete, time.Second)

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Perform(context.Background(), Presentation{Completed: true}, func(ctx context.Context) (uuid.UUID, error) {
			<-release
			return uuid.New(), nil
		})
	}()

	// Wait for the optimistic apply to land.
	for c.State() != StateApplied {
		time.Sleep(time.Millisecond)
	}

	_, err := c.Perform(context.Background(), Presentation{}, func(ctx context.Context) (uuid.UUID, error) {
		return uuid.New(), nil
	})
	if !errors.Is(err, ErrActionInFlight) {
		t.Errorf("err = %v, want ErrActionInFlight", err)
	}

	close(release)
	<-done
}

func TestUndoRestoresPriorState(t *testing.T) {
	var deleted []uuid.UUID
	c := NewController(func(ctx context.Context, id uuid.UUID) error {
		deleted = append(deleted, id)
		return nil
	}, 5*time.Second)

	before := Presentation{Accumulated: 10, Percent: intPtr(20)}
	c.SetView(before)

	entryID := uuid.New()
	undo, err := c.Perform(context.Background(), Presentation{Completed: true}, func(ctx context.Context) (uuid.UUID, error) {
		return entryID, nil
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}

	if err := undo.Invoke(context.Background()); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != entryID {
		t.Errorf("deleted = %v, want [%s]", deleted, entryID)
	}
	if got := c.View(); got != before {
		t.Errorf("view = %+v, want pre-apply %+v", got, before)
	}
	if c.State() != StateRolledBack {
		t.Errorf("state = %v, want RolledBack", c.State())
	}

	// Second invoke is spent.
	if err := undo.Invoke(context.Background()); !errors.Is(err, ErrUndoExpired) {
		t.Errorf("second Invoke err = %v, want ErrUndoExpired", err)
	}
}

func TestUndoWindowElapses(t *testing.T) {
	c := NewController(noDelete, 5*time.Second)
	current := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	undo, err := c.Perform(context.Background(), Presentation{Completed: true}, func(ctx context.Context) (uuid.UUID, error) {
		return uuid.New(), nil
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if undo.Expired() {
		t.Error("undo should be live inside the window")
	}

	current = current.Add(6 * time.Second)
	if !undo.Expired() {
		t.Error("undo should be withdrawn after the window")
	}
	if err := undo.Invoke(context.Background()); !errors.Is(err, ErrUndoExpired) {
		t.Errorf("Invoke err = %v, want ErrUndoExpired", err)
	}
	if c.State() != StateConfirmed {
		t.Errorf("state = %v, want Confirmed (mutation already landed)", c.State())
	}
}

func TestUndoFailureKeepsConfirmedState(t *testing.T) {
	deleteErr := errors.New("connection reset")
	c := NewController(func(ctx context.Context, id uuid.UUID) error {
		return deleteErr
	}, 5*time.Second)

	applied := Presentation{Completed: true, Accumulated: 1}
	undo, err := c.Perform(context.Background(), applied, func(ctx context.Context) (uuid.UUID, error) {
		return uuid.New(), nil
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}

	err = undo.Invoke(context.Background())
	if err == nil {
		t.Fatal("Invoke should surface the delete failure")
	}
	// The remote delete may have partially succeeded; the view must not
	// revert to the optimistic guess.
	if c.State() != StateConfirmed {
		t.Errorf("state = %v, want Confirmed", c.State())
	}
	if got := c.View(); got != applied {
		t.Errorf("view = %+v, want confirmed %+v", got, applied)
	}
}
