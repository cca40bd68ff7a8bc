package domain

import "time"

// BotStatus resume el estado del bot para el panel.
type BotStatus struct {
	Connected     bool      `json:"connected"`
	Channel       string    `json:"channel"`
	BroadcasterID string    `json:"broadcaster_id,omitempty"`
	Speaking      bool      `json:"speaking"`
	QueueLength   int       `json:"queue_length"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
