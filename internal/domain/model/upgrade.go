package model

import "time"

// EventKind is the kind of an inbound source-control webhook delivery.
type EventKind string

const (
	EventKindPing  EventKind = "ping"
	EventKindPush  EventKind = "push"
	EventKindOther EventKind = "other"
)

// ParseEventKind maps a raw event header value to an EventKind.
func ParseEventKind(s string) EventKind {
	switch EventKind(s) {
	case EventKindPing, EventKindPush:
		return EventKind(s)
	default:
		return EventKindOther
	}
}

// UpgradeEvent is a webhook delivery as received. It is never persisted.
type UpgradeEvent struct {
	Kind             EventKind
	DeliveryID       string
	Body             []byte
	ClaimedSignature string
}

// UpgradeState is the position of the upgrade controller state machine.
type UpgradeState string

const (
	UpgradeStateIdle       UpgradeState = "idle"
	UpgradeStateUpgrading  UpgradeState = "upgrading"
	UpgradeStateCleaningUp UpgradeState = "cleaning_up"
	UpgradeStateRestarting UpgradeState = "restarting"
	UpgradeStateStopping   UpgradeState = "stopping"
)

// UpgradeAction is what an upgrade sequence was asked to do.
type UpgradeAction string

const (
	UpgradeActionUpgrade  UpgradeAction = "upgrade"
	UpgradeActionRestart  UpgradeAction = "restart"
	UpgradeActionShutdown UpgradeAction = "shutdown"
)

// UpgradeStatus is a snapshot of the upgrade controller.
type UpgradeStatus struct {
	State      UpgradeState
	Action     UpgradeAction
	Trigger    string
	StartedAt  time.Time
	FinishedAt time.Time
	LastError  string
}

// Revision identifies a commit on the upgrade branch.
type Revision struct {
	Branch  string
	SHA     string
	Message string
	URL     string
}
