// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationMessage is published for every user-facing notification:
// booking confirmations, cancellations, check-in/check-out receipts, the
// three one-shot reminders, no-show markings and forced checkouts.  It
// carries enough information for downstream consumers to deliver, log or
// aggregate without querying the primary database.  Kind is a stable
// machine-readable tag ("booking_confirmed", "entry_reminder", ...).
type NotificationMessage struct {
	MessageID string `json:"message_id"`
	UserID    uint64 `json:"user_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Kind      string `json:"kind"`
	SentAt    string `json:"sent_at"`
}
