package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Devices []SubscribedDevice `gorm:"foreignKey:Endpoint"`
}

// SubscribedDevice links a push subscription to a device id it wants events for.
// Devices live in memory, so the id is stored as plain text rather than a foreign key.
type SubscribedDevice struct {
	Endpoint string `gorm:"primaryKey"`
	DeviceID string `gorm:"primaryKey;size:64;index"`
}
