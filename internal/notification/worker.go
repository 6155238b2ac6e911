package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"semp-gateway/internal/events"
	"semp-gateway/internal/model"
	"semp-gateway/internal/store"
)

// ErrQueueFull is returned by Publish when no worker can take the event.
var ErrQueueFull = errors.New("notification queue is full")

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers that turn device events into push notifications.
type WorkerPool struct {
	size    int
	jobs    chan events.Event
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan events.Event, size*16),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case e := <-wp.jobs:
			wp.sendNotificationsForEvent(ctx, e)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Publish queues an event for delivery. It never blocks: when the queue is
// full the event is dropped and ErrQueueFull is returned.
func (wp *WorkerPool) Publish(_ context.Context, e events.Event) error {
	select {
	case wp.jobs <- e:
		return nil
	default:
		return fmt.Errorf("%w: dropping %s event for device %s", ErrQueueFull, e.Type, e.DeviceID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan events.Event {
	return wp.jobs
}

// Message renders the notification text for an event.
func Message(e events.Event) string {
	switch e.Type {
	case events.DeviceRegistered:
		return fmt.Sprintf("Device %s was registered", e.DeviceID)
	case events.DeviceReplaced:
		return fmt.Sprintf("Device %s was updated", e.DeviceID)
	case events.DeviceDeleted:
		return fmt.Sprintf("Device %s was removed", e.DeviceID)
	case events.PlanningAdded:
		return fmt.Sprintf("New planning request for device %s", e.DeviceID)
	case events.PlanningCleared:
		return fmt.Sprintf("Planning requests for device %s were cleared", e.DeviceID)
	default:
		return fmt.Sprintf("Device %s: %s", e.DeviceID, e.Type)
	}
}

func (wp *WorkerPool) sendNotificationsForEvent(ctx context.Context, e events.Event) {
	subscriptions, err := wp.store.SubscriptionsForDevice(ctx, e.DeviceID)
	if err != nil {
		log.Printf("Error fetching subscriptions for device %s: %v", e.DeviceID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for %s on device %s", len(subscriptions), e.Type, e.DeviceID)
	payload := []byte(Message(e))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
