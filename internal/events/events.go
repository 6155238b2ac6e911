package events

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Event types emitted when the registry changes through the API.
const (
	DeviceRegistered = "device.registered"
	DeviceReplaced   = "device.replaced"
	DeviceDeleted    = "device.deleted"
	PlanningAdded    = "planning.added"
	PlanningCleared  = "planning.cleared"
)

// Event describes a single change to a device.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	DeviceID  string    `json:"deviceId"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates an event stamped with a fresh id and the current time.
func New(eventType, deviceID string) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers events to some downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Fanout delivers each event to every publisher. Failures are logged and do
// not stop delivery to the remaining publishers.
type Fanout struct {
	publishers []Publisher
}

// NewFanout creates a Fanout over the given publishers. Nil publishers are skipped.
func NewFanout(publishers ...Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish implements Publisher.
func (f *Fanout) Publish(ctx context.Context, e Event) error {
	if f == nil {
		return nil
	}
	for _, p := range f.publishers {
		if err := p.Publish(ctx, e); err != nil {
			log.Printf("Error publishing %s event for device %s: %v", e.Type, e.DeviceID, err)
		}
	}
	return nil
}

// Len returns the number of publishers.
func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}
