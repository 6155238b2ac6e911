package events

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrDropped is returned by Async.Publish when its queue is full.
var ErrDropped = errors.New("event queue is full")

// Async queues events for a slow Publisher and delivers them from a single
// background goroutine. Publish never blocks the caller.
type Async struct {
	next  Publisher
	queue chan Event
}

// NewAsync wraps next with a queue holding up to size events.
func NewAsync(next Publisher, size int) *Async {
	if size <= 0 {
		size = 1
	}
	return &Async{
		next:  next,
		queue: make(chan Event, size),
	}
}

// Start launches the delivery goroutine. It stops when ctx is done; the
// context is also the one handed to the wrapped publisher.
func (a *Async) Start(ctx context.Context) {
	go a.run(ctx)
}

func (a *Async) run(ctx context.Context) {
	for {
		select {
		case e := <-a.queue:
			if err := a.next.Publish(ctx, e); err != nil {
				log.Printf("Error delivering %s event for device %s: %v", e.Type, e.DeviceID, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Publish implements Publisher.
func (a *Async) Publish(_ context.Context, e Event) error {
	select {
	case a.queue <- e:
		return nil
	default:
		return fmt.Errorf("%w: dropping %s event for device %s", ErrDropped, e.Type, e.DeviceID)
	}
}
