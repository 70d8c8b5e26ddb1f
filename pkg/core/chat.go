// pkg/core/chat.go
package core

import "time"

// ChatMessage is one entry in the session chat feed. FromHost lets viewers
// highlight host traffic.
type ChatMessage struct {
	ID              string    `json:"id"`
	SenderID        string    `json:"senderId"`
	SenderName      string    `json:"senderName"`
	Text            string    `json:"text"`
	ClientTimestamp time.Time `json:"clientTimestamp"`
	ServerTimestamp time.Time `json:"serverTimestamp"`
	FromHost        bool      `json:"fromHost"`
}
