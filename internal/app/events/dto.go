package events

import (
	"time"

	"yamBot/internal/domain"
)

// ChatMessageDTO describe el payload que se envía al panel a través del bus.
type ChatMessageDTO struct {
	ID            string `json:"id"`
	Platform      string `json:"platform"`
	ChannelID     string `json:"channel_id"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Text          string `json:"text"`
	IsBroadcaster bool   `json:"is_broadcaster"`
	IsModerator   bool   `json:"is_moderator"`
	IsVIP         bool   `json:"is_vip"`
	IsSubscriber  bool   `json:"is_subscriber"`
	Timestamp     string `json:"timestamp"`
}

// NewChatMessageDTO crea un DTO serializable a partir de domain.Message.
func NewChatMessageDTO(msg domain.Message) ChatMessageDTO {
	return ChatMessageDTO{
		ID:            msg.ID,
		Platform:      string(msg.Platform),
		ChannelID:     msg.ChannelID,
		UserID:        msg.UserID,
		Username:      msg.Username,
		Text:          msg.Text,
		IsBroadcaster: msg.IsBroadcaster,
		IsModerator:   msg.IsModerator,
		IsVIP:         msg.IsVIP,
		IsSubscriber:  msg.IsSubscriber,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
	}
}

const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogDTO es una entrada del registro de actividad que ve el panel.
type LogDTO struct {
	Level     string `json:"level"`
	Source    string `json:"source"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func NewLogDTO(level, source, message string) LogDTO {
	return LogDTO{
		Level:     level,
		Source:    source,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// SoundPlayedDTO avisa de que un efecto de sonido entró a reproducirse.
type SoundPlayedDTO struct {
	Name        string `json:"name"`
	RequestedBy string `json:"requested_by,omitempty"`
	PlayedAt    string `json:"played_at"`
}

func NewSoundPlayedDTO(name, requestedBy string) SoundPlayedDTO {
	return SoundPlayedDTO{
		Name:        name,
		RequestedBy: requestedBy,
		PlayedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}
}
