package model

import "time"

// PushSubscription is a browser Web Push subscription registered by an admin.
// Subscription holds the raw PushSubscription JSON produced by the browser.
type PushSubscription struct {
	ID           int64
	UserID       int64
	Subscription string
	SubscribedAt time.Time
}
