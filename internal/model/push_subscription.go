package model

import "time"

// PushSubscription holds a browser push subscription for fault alerts.
// The many-to-many mapping selects which machines the subscriber watches.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Machines []*Machine `gorm:"many2many:subscription_machine_mapping;joinForeignKey:push_subscription_endpoint;joinReferences:machine_id"`
}
