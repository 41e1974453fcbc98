package model

import (
	"time"

	"gorm.io/datatypes"
)

// PushPlatform selects which delivery back-end owns a user's subscription.
type PushPlatform string

const (
	PlatformRelay  PushPlatform = "relay"
	PlatformNative PushPlatform = "native"
)

func (p PushPlatform) Valid() bool {
	return p == PlatformRelay || p == PlatformNative
}

// PushSubscription is the single current subscription for a user. Data is
// opaque to the router; only the matching platform adapter decodes it. The
// platform value is asserted by the client at subscribe time and trusted.
type PushSubscription struct {
	UserID    string         `gorm:"primaryKey;size:128" json:"userId"`
	Platform  PushPlatform   `gorm:"column:platform;size:16;not null" json:"platform"`
	Data      datatypes.JSON `gorm:"column:data" json:"subscriptionData"`
	Endpoint  *string        `gorm:"column:endpoint;size:512;index" json:"endpoint,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

// PushEndpoint mirrors subscriptions keyed by endpoint. It exists for
// clients that predate the per-user table and is cleaned up together with
// the primary row.
type PushEndpoint struct {
	Endpoint  string         `gorm:"primaryKey;size:512" json:"endpoint"`
	UserID    string         `gorm:"column:user_id;size:128;index" json:"userId"`
	Data      datatypes.JSON `gorm:"column:data" json:"subscriptionData"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (PushEndpoint) TableName() string {
	return "push_endpoints"
}
