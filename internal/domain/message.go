package domain

import "time"

type Platform string

const (
	PlatformTwitch Platform = "twitch"
	// mensajes de prueba lanzados desde el panel web
	PlatformWeb Platform = "web"
)

type Message struct {
	ID        string
	Platform  Platform
	ChannelID string
	UserID    string
	Username  string
	Text      string
	SentAt    time.Time

	// Flags que vienen de la plataforma (los rellenamos en el adapter)
	IsBroadcaster bool
	IsModerator   bool
	IsVIP         bool
	IsSubscriber  bool
}
