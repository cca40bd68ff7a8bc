package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"yamBot/internal/app/events"
	"yamBot/internal/domain"
)

// Server expone el WebSocket del panel y la API HTTP. Todo lo que pasa por
// el bus de eventos se retransmite a los clientes conectados como un sobre
// {type, data}; los mensajes entrantes del panel se despachan al handler
// como mensajes de chat normales.
type Server struct {
	addr     string
	bus      *events.Bus
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	handler MessageHandler

	httpSrv *http.Server
	api     *apiHandlers
}

type MessageHandler func(ctx context.Context, msg domain.Message) error

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// NewServer crea un servidor escuchando en cfg.Addr (ej. ":8080").
func NewServer(cfg Config) *Server {
	return &Server{
		addr: cfg.addr(),
		bus:  cfg.Bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*wsClient]struct{}),
		api:     newAPIHandlers(cfg),
	}
}

// Start levanta el HTTP server y se bloquea hasta que el contexto se cancela.
func (s *Server) Start(ctx context.Context) error {
	handler := s.buildHandler(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ws: shutdown error: %v", err)
		}
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// buildHandler monta el mux y arranca el reenvío de eventos del bus. Va
// separado de Start para poder colgarlo de un servidor de prueba.
func (s *Server) buildHandler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat", func(w http.ResponseWriter, r *http.Request) {
		s.handleWS(ctx, w, r)
	})
	if s.api != nil {
		s.api.setBaseContext(ctx)
		s.api.register(mux)
	}

	if s.bus != nil {
		s.forwardEvents(ctx)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			setCORSHeaders(w)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		mux.ServeHTTP(w, r)
	})
}

// forwardEvents retransmite cada topic del bus a los clientes del panel.
func (s *Server) forwardEvents(ctx context.Context) {
	topics := []string{
		events.TopicChatMessage,
		events.TopicLog,
		events.TopicQueue,
		events.TopicTTSStatus,
		events.TopicBotStatus,
		events.TopicSoundPlayed,
	}

	for _, topic := range topics {
		ch, unsubscribe := s.bus.Subscribe(topic)
		go func(topic string, ch <-chan any, unsubscribe func()) {
			defer unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-ch:
					if !ok {
						return
					}
					s.broadcast(topic, payload)
				}
			}
		}(topic, ch, unsubscribe)
	}
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// broadcast manda el sobre a todos los clientes; el que falle al escribir
// se desconecta.
func (s *Server) broadcast(eventType string, data any) {
	payload, err := json.Marshal(envelope{Type: eventType, Data: data})
	if err != nil {
		log.Printf("ws: marshal %s: %v", eventType, err)
		return
	}

	s.mu.RLock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(json.RawMessage(payload)); err != nil {
			log.Printf("ws: cliente desconectado por error de escritura: %v", err)
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			c.conn.Close()
		}
	}
}

func (s *Server) handleWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	client := &wsClient{conn: conn}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	clientCount := len(s.clients)
	s.mu.Unlock()

	log.Printf("ws: nueva conexión desde %s (%d clientes activos)", r.RemoteAddr, clientCount)

	go s.handleClient(ctx, client)
}

func (s *Server) handleClient(ctx context.Context, client *wsClient) {
	defer func() {
		client.conn.Close()

		s.mu.Lock()
		delete(s.clients, client)
		clientCount := len(s.clients)
		s.mu.Unlock()

		log.Printf("ws: conexión cerrada (%d clientes activos)", clientCount)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgType, data, err := client.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("ws: read error: %v", err)
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		if err := s.dispatchIncoming(ctx, data); err != nil {
			log.Printf("ws: incoming dispatch error: %v", err)
		}
	}
}

type incomingPayload struct {
	Text      string `json:"text"`
	Platform  string `json:"platform"`
	ChannelID string `json:"channel_id"`
	Username  string `json:"username"`
}

// dispatchIncoming convierte un mensaje del panel en un domain.Message.
// El panel manda como si fuera el propio streamer, con todos los roles.
func (s *Server) dispatchIncoming(ctx context.Context, data []byte) error {
	handler := s.getHandler()
	if handler == nil {
		return nil
	}

	payload := incomingPayload{}
	if err := json.Unmarshal(data, &payload); err != nil {
		payload.Text = strings.TrimSpace(string(data))
	} else {
		payload.Text = strings.TrimSpace(payload.Text)
	}

	if payload.Text == "" {
		return fmt.Errorf("ws: empty incoming text")
	}

	channelID := strings.TrimSpace(payload.ChannelID)
	if channelID == "" {
		channelID = "panel"
	}
	username := strings.TrimSpace(payload.Username)
	if username == "" {
		username = "web-user"
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		Platform:  normalizePlatform(payload.Platform),
		ChannelID: channelID,
		UserID:    "web",
		Username:  username,
		Text:      payload.Text,
		SentAt:    time.Now().UTC(),

		IsBroadcaster: true,
		IsModerator:   true,
		IsVIP:         true,
		IsSubscriber:  true,
	}

	return handler(ctx, msg)
}

func (s *Server) getHandler() MessageHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

func (s *Server) SetHandler(h MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func normalizePlatform(p string) domain.Platform {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case string(domain.PlatformTwitch):
		return domain.PlatformTwitch
	default:
		return domain.PlatformWeb
	}
}

type outgoingBotMessage struct {
	Platform  string `json:"platform"`
	ChannelID string `json:"channel_id"`
	ReplyToID string `json:"reply_to_id,omitempty"`
	Text      string `json:"text"`
	SentAt    string `json:"sent_at"`
}

// SendMessage cumple el puerto de salida para la plataforma web: los
// mensajes del bot van al panel en lugar de a un chat real.
func (s *Server) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	s.broadcast("bot:message", outgoingBotMessage{
		Platform:  string(platform),
		ChannelID: channelID,
		Text:      text,
		SentAt:    time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

// ReplyMessage marca a qué mensaje contesta; el panel lo pinta como hilo.
func (s *Server) ReplyMessage(ctx context.Context, platform domain.Platform, channelID, replyToID, text string) error {
	s.broadcast("bot:message", outgoingBotMessage{
		Platform:  string(platform),
		ChannelID: channelID,
		ReplyToID: replyToID,
		Text:      text,
		SentAt:    time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}
