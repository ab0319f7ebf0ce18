package docstore

import (
	"context"
	"errors"
)

// Change identifies a written document.
type Change struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// Notifier is the change feed behind Watch.
type Notifier interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(ctx context.Context, collection string) (Subscription, error)
}

// Subscription delivers the changes of one collection until closed.
type Subscription interface {
	Changes() <-chan Change
	Close() error
}

// Snapshot is one event of a Watch: the current result, or the error that
// prevented reading it.
type Snapshot struct {
	Documents []*Document
	Err       error
}

// First returns the first document, or nil.
func (s Snapshot) First() *Document {
	if len(s.Documents) == 0 {
		return nil
	}
	return s.Documents[0]
}

// Watch is a live subscription. The first event is the current state; each
// later event follows a change. Close releases it; cancelling the context
// passed to Watch does too.
type Watch struct {
	events chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
}

// Events is closed when the watch ends.
func (w *Watch) Events() <-chan Snapshot { return w.events }

// Close stops the watch and waits for its goroutine to exit.
func (w *Watch) Close() {
	w.cancel()
	<-w.done
}

// Watch observes one document. A missing document yields an empty snapshot.
func (s *Store) Watch(ctx context.Context, collection, id string) (*Watch, error) {
	if err := validateRef(collection, id); err != nil {
		return nil, err
	}
	match := func(c Change) bool { return c.ID == id }
	fetch := func(ctx context.Context) Snapshot {
		d, err := s.Get(ctx, collection, id)
		switch {
		case errors.Is(err, ErrNotFound):
			return Snapshot{}
		case err != nil:
			return Snapshot{Err: err}
		}
		return Snapshot{Documents: []*Document{d}}
	}
	return s.watch(ctx, collection, match, fetch)
}

// WatchQuery re-runs q whenever a document of its collection changes.
func (s *Store) WatchQuery(ctx context.Context, q Query) (*Watch, error) {
	match := func(Change) bool { return true }
	fetch := func(ctx context.Context) Snapshot {
		docs, err := s.Query(ctx, q)
		return Snapshot{Documents: docs, Err: err}
	}
	return s.watch(ctx, q.Collection, match, fetch)
}

func (s *Store) watch(
	ctx context.Context,
	collection string,
	match func(Change) bool,
	fetch func(context.Context) Snapshot,
) (*Watch, error) {
	if s.notifier == nil {
		return nil, ErrNoNotifier
	}

	ctx, cancel := context.WithCancel(ctx)
	sub, err := s.notifier.Subscribe(ctx, collection)
	if err != nil {
		cancel()
		return nil, err
	}

	w := &Watch{
		events: make(chan Snapshot, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(w.done)
		defer close(w.events)
		defer sub.Close()

		if !w.send(ctx, fetch(ctx)) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-sub.Changes():
				if !ok {
					return
				}
				if c.Collection != collection || !match(c) {
					continue
				}
				if !w.send(ctx, fetch(ctx)) {
					return
				}
			}
		}
	}()

	return w, nil
}

func (w *Watch) send(ctx context.Context, snap Snapshot) bool {
	select {
	case w.events <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
