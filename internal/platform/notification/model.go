// Package notification records user-facing notifications and delivers them
// asynchronously: a bounded queue feeds workers that persist each message
// and push it to the recipient's Firebase topic and open live streams.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a stored inbox entry.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Kind        string    `json:"kind"`
	IsRead      bool      `json:"is_read"`
	Timestamp   time.Time `json:"timestamp"`
}

// Message asks the dispatcher to render Template with Data for a user.
type Message struct {
	RecipientID uuid.UUID
	Template    string
	Data        map[string]string
}
