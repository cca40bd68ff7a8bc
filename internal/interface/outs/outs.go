package outs

import (
	"context"
	"fmt"
	"sync"

	"yamBot/internal/domain"
)

// Sender es la interfaz que deben implementar los adapters de salida (Twitch, web, etc.)
type Sender interface {
	// platform: de qué plataforma viene el mensaje original
	// channelID: canal al que hay que responder (ej. "#yamoneta" en Twitch)
	SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error
	// ReplyMessage responde citando al mensaje replyToID; si la plataforma
	// no soporta respuestas, el adapter manda un mensaje normal.
	ReplyMessage(ctx context.Context, platform domain.Platform, channelID, replyToID, text string) error
}

// MultiSender enruta los mensajes al sender correcto según la plataforma.
type MultiSender struct {
	mu      sync.RWMutex
	senders map[domain.Platform]Sender
}

// NewMultiSender crea un MultiSender vacío.
func NewMultiSender() *MultiSender {
	return &MultiSender{
		senders: make(map[domain.Platform]Sender),
	}
}

// Register asocia una plataforma con un Sender concreto.
func (m *MultiSender) Register(platform domain.Platform, sender Sender) {
	if m == nil || sender == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.senders[platform] = sender
}

// Unregister elimina el sender de una plataforma.
func (m *MultiSender) Unregister(platform domain.Platform) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.senders, platform)
}

// SendMessage busca el sender para esa plataforma y delega el envío.
func (m *MultiSender) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	sender, err := m.senderFor(platform)
	if err != nil {
		return err
	}
	return sender.SendMessage(ctx, platform, channelID, text)
}

// ReplyMessage busca el sender para esa plataforma y delega la respuesta.
func (m *MultiSender) ReplyMessage(ctx context.Context, platform domain.Platform, channelID, replyToID, text string) error {
	sender, err := m.senderFor(platform)
	if err != nil {
		return err
	}
	return sender.ReplyMessage(ctx, platform, channelID, replyToID, text)
}

func (m *MultiSender) senderFor(platform domain.Platform) (Sender, error) {
	if m == nil {
		return nil, fmt.Errorf("no hay multi sender configurado")
	}
	m.mu.RLock()
	sender, ok := m.senders[platform]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no hay sender registrado para la plataforma %s", platform)
	}
	return sender, nil
}

var _ domain.OutgoingMessagePort = (*MultiSender)(nil)
