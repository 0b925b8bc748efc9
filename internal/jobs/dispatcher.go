// internal/jobs/dispatcher.go
package jobs

import (
	"errors"

	"github.com/google/uuid"
)

// EventRepositoryConnected is emitted once per successful repository connect.
const EventRepositoryConnected = "repository.connected"

// RepositoryConnected is the payload of an EventRepositoryConnected event.
type RepositoryConnected struct {
	Owner  string
	Repo   string
	UserID string
}

// Event is one unit of asynchronous work. ID identifies the run: retries of
// the same event reuse it, which is what scopes step memoization.
type Event struct {
	ID   string
	Name string
	Data RepositoryConnected
}

// NewEvent creates an event with a fresh run id.
func NewEvent(name string, data RepositoryConnected) Event {
	return Event{ID: uuid.NewString(), Name: name, Data: data}
}

// ErrQueueFull is returned by Enqueue when the dispatch buffer is saturated.
// Emission is best-effort; callers log it rather than failing their request.
var ErrQueueFull = errors.New("job queue is full")

// Dispatcher hands events to the asynchronous worker.
type Dispatcher interface {
	Enqueue(ev Event) error
}

// ChannelDispatcher is an in-process Dispatcher over a buffered channel.
type ChannelDispatcher struct {
	ch chan Event
}

var _ Dispatcher = (*ChannelDispatcher)(nil)

// NewChannelDispatcher creates a dispatcher with the given buffer size.
func NewChannelDispatcher(size int) *ChannelDispatcher {
	return &ChannelDispatcher{ch: make(chan Event, size)}
}

// Enqueue adds an event without blocking. A full queue is reported as
// ErrQueueFull instead of stalling the caller's request.
func (d *ChannelDispatcher) Enqueue(ev Event) error {
	select {
	case d.ch <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Events exposes the consumption side for the worker.
func (d *ChannelDispatcher) Events() <-chan Event {
	return d.ch
}
