// Package twitchadapter adapter for twitch
package twitchadapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adeithe/go-twitch/irc"

	"yamBot/internal/domain"
)

type Config struct {
	Username   string
	OAuthToken string
	Channels   []string
}

type MessageHandler func(ctx context.Context, msg domain.Message) error

type Adapter struct {
	cfg     Config
	handler MessageHandler

	mu   sync.RWMutex
	conn *irc.Conn
}

func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

func (a *Adapter) SetHandler(h MessageHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

func (a *Adapter) Start(ctx context.Context) error {
	if len(a.cfg.Channels) == 0 {
		return errors.New("twitch: no hay canales configurados")
	}
	if a.cfg.Username == "" || a.cfg.OAuthToken == "" {
		return errors.New("twitch: username u oauth token vacíos")
	}

	// 🔹 Usamos UNA sola conexión simple, sin sharding
	conn := &irc.Conn{}

	if err := conn.SetLogin(a.cfg.Username, a.cfg.OAuthToken); err != nil {
		return fmt.Errorf("twitch: SetLogin: %w", err)
	}

	conn.OnMessage(func(cm irc.ChatMessage) {
		a.mu.RLock()
		handler := a.handler
		a.mu.RUnlock()
		if handler == nil {
			return
		}

		msg := mapChatMessageToDomain(cm)
		if err := handler(ctx, msg); err != nil {
			log.Printf("twitch: error en handler: %v", err)
		}
	})

	if err := conn.Connect(); err != nil {
		return fmt.Errorf("twitch: Connect: %w", err)
	}

	if err := conn.Join(a.cfg.Channels...); err != nil {
		return fmt.Errorf("twitch: Join: %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	log.Printf("twitch: conectado como %s a canales %v", a.cfg.Username, a.cfg.Channels)

	<-ctx.Done()

	a.mu.Lock()
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	a.mu.Unlock()

	return ctx.Err()
}

// Connected dice si hay una conexión IRC viva.
func (a *Adapter) Connected() bool {
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()
	return conn != nil && conn.IsConnected()
}

func (a *Adapter) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	if platform != domain.PlatformTwitch {
		return fmt.Errorf("twitch adapter no soporta plataforma %s", platform)
	}

	conn, err := a.liveConn()
	if err != nil {
		return err
	}

	log.Printf("Twitch -> Say(%s): %s", channelID, text)
	return conn.Say(channelID, text)
}

// ReplyMessage cita el mensaje original con el tag reply-parent-msg-id.
// Sin ID del mensaje original cae a un mensaje normal.
func (a *Adapter) ReplyMessage(ctx context.Context, platform domain.Platform, channelID, replyToID, text string) error {
	if platform != domain.PlatformTwitch {
		return fmt.Errorf("twitch adapter no soporta plataforma %s", platform)
	}
	if strings.TrimSpace(replyToID) == "" {
		return a.SendMessage(ctx, platform, channelID, text)
	}

	conn, err := a.liveConn()
	if err != nil {
		return err
	}

	channel := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(channelID)), "#")
	log.Printf("Twitch -> Reply(%s, %s): %s", channel, replyToID, text)
	return conn.SendRaw(fmt.Sprintf("@reply-parent-msg-id=%s PRIVMSG #%s :%s", replyToID, channel, text))
}

func (a *Adapter) liveConn() (*irc.Conn, error) {
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return nil, errors.New("twitch: conexión no inicializada o cerrada")
	}
	return conn, nil
}

func mapChatMessageToDomain(cm irc.ChatMessage) domain.Message {
	sender := cm.Sender

	return domain.Message{
		ID:        cm.ID,
		Platform:  domain.PlatformTwitch,
		ChannelID: cm.Channel,
		UserID:    strconv.FormatInt(sender.ID, 10),
		Username:  sender.DisplayName,
		Text:      cm.Text,
		SentAt:    time.Now().UTC(),

		IsBroadcaster: sender.IsBroadcaster,
		IsModerator:   sender.IsModerator,
		IsVIP:         sender.IsVIP,
		IsSubscriber:  sender.IsSubscriber,
	}
}
