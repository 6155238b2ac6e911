package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingPublisher holds every Publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
	got     chan Event
}

func (b *blockingPublisher) Publish(ctx context.Context, e Event) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.got <- e
	return nil
}

func TestAsync_DoesNotWaitForDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := &blockingPublisher{release: make(chan struct{}), got: make(chan Event, 4)}
	a := NewAsync(slow, 2)
	a.Start(ctx)

	start := time.Now()
	for i := 0; i < 5; i++ {
		_ = a.Publish(context.Background(), New(PlanningAdded, "1234"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(slow.release)
	select {
	case e := <-slow.got:
		assert.Equal(t, "1234", e.DeviceID)
	case <-time.After(time.Second):
		t.Fatal("queued event was not delivered")
	}
}

func TestAsync_DropsWhenFull(t *testing.T) {
	a := NewAsync(&recordingPublisher{}, 1)

	require.NoError(t, a.Publish(context.Background(), New(DeviceDeleted, "1")))
	err := a.Publish(context.Background(), New(DeviceDeleted, "2"))
	assert.ErrorIs(t, err, ErrDropped)
}

func TestAsync_DeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &blockingPublisher{release: make(chan struct{}), got: make(chan Event, 3)}
	close(rec.release)
	a := NewAsync(rec, 3)
	a.Start(ctx)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, a.Publish(context.Background(), New(DeviceRegistered, id)))
	}
	for _, id := range []string{"a", "b", "c"} {
		select {
		case e := <-rec.got:
			assert.Equal(t, id, e.DeviceID)
		case <-time.After(time.Second):
			t.Fatalf("event %s was not delivered", id)
		}
	}
}
