package entity

import "time"

// Message is one product event as read back from Kafka. Body holds the raw
// event JSON.
type Message struct {
	ID         string    `db:"id" json:"id"`
	Body       string    `db:"message" json:"message"`
	ReceivedAt time.Time `db:"received_at" json:"received_at"`
}
