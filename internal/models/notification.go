// internal/models/notification.go
package models

import "time"

// Channel is a notification transport.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelWebhook Channel = "webhook"
)

// NotificationStatus tracks delivery state. Valid transitions are
// pending->sent, pending->failed and failed->pending (retry).
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// CanTransitionTo reports whether moving to next is a legal status change.
func (s NotificationStatus) CanTransitionTo(next NotificationStatus) bool {
	switch s {
	case NotificationPending:
		return next == NotificationSent || next == NotificationFailed
	case NotificationFailed:
		return next == NotificationPending
	default:
		return false
	}
}

// NotificationRecord is one supplier notification about a match, updated on
// every delivery attempt and never deleted. Attempts only ever increases.
type NotificationRecord struct {
	ID         string             `json:"id"`
	RFQID      string             `json:"rfqId"`
	SupplierID string             `json:"supplierId"`
	Channel    Channel            `json:"channel"`
	Status     NotificationStatus `json:"status"`
	Attempts   int                `json:"attempts"`
	LastError  string             `json:"lastError,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}
