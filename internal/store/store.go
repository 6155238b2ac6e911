package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"semp-gateway/internal/model"
)

// ErrSubscriptionNotFound is returned when no subscription exists for an endpoint.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Store defines the persistence operations for push subscriptions.
type Store interface {
	PutSubscription(ctx context.Context, sub model.PushSubscription, deviceIDs []string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForDevice(ctx context.Context, deviceID string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// PutSubscription creates or replaces a subscription and its device list.
func (s *gormStore) PutSubscription(ctx context.Context, sub model.PushSubscription, deviceIDs []string) error {
	sub.Devices = nil
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription %s: %w", sub.Endpoint, err)
		}

		if err := tx.Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscribedDevice{}).Error; err != nil {
			return fmt.Errorf("failed to clear devices for subscription %s: %w", sub.Endpoint, err)
		}

		links := make([]model.SubscribedDevice, 0, len(deviceIDs))
		seen := make(map[string]bool, len(deviceIDs))
		for _, id := range deviceIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			links = append(links, model.SubscribedDevice{Endpoint: sub.Endpoint, DeviceID: id})
		}
		if len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return fmt.Errorf("failed to link devices for subscription %s: %w", sub.Endpoint, err)
			}
		}
		return nil
	})
}

// GetSubscription loads a subscription with its device list.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Devices").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription %s: %w", endpoint, err)
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription. Deleting an unknown endpoint is not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.SubscribedDevice{}).Error; err != nil {
			return fmt.Errorf("failed to unlink devices for subscription %s: %w", endpoint, err)
		}
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
		}
		return nil
	})
}

// SubscriptionsForDevice returns every subscription that asked for events about deviceID.
func (s *gormStore) SubscriptionsForDevice(ctx context.Context, deviceID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscribed_devices sd ON sd.endpoint = push_subscriptions.endpoint").
		Where("sd.device_id = ?", deviceID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for device %s: %w", deviceID, err)
	}
	return subs, nil
}
