package domain

import "time"

// NotificationRequest is a single outbound message.
type NotificationRequest struct {
	Text        string
	RecipientID string // Canonical platform address
}

// Receipt confirms the platform accepted a message.
type Receipt struct {
	MessageID string    `json:"message_id"`
	Recipient string    `json:"recipient"`
	SentAt    time.Time `json:"sent_at"`
}
