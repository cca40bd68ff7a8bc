package events

import (
	"log"
	"sync"
)

const (
	TopicChatMessage = "chat:message"
	TopicLog         = "log:entry"
	TopicQueue       = "tts:queue"
	TopicTTSStatus   = "tts:status"
	TopicBotStatus   = "bot:status"
	TopicSoundPlayed = "sfx:played"

	defaultBufferSize = 128
)

// Bus reparte eventos a los suscriptores sin bloquear nunca al emisor: si el
// canal de un suscriptor está lleno, el evento se descarta para ese
// suscriptor. El panel recibe snapshots completos, así que perder un evento
// intermedio no deja estado inconsistente.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string]map[int]chan any
	nextSubID int
	closed    bool

	dropMu     sync.Mutex
	dropCounts map[string]uint64
}

func NewBus() *Bus {
	return &Bus{
		subs:       make(map[string]map[int]chan any),
		dropCounts: make(map[string]uint64),
	}
}

func (b *Bus) Publish(topic string, payload any) {
	if topic == "" {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	// el reparto va bajo el lock de lectura: los envíos no bloquean y
	// cerrar un canal exige el lock de escritura, así que un unsubscribe
	// concurrente no puede pillar el bucle a medias
	for _, ch := range b.subs[topic] {
		select {
		case ch <- payload:
		default:
			b.recordDrop(topic)
		}
	}
}

func (b *Bus) Subscribe(topic string) (<-chan any, func()) {
	ch := make(chan any, defaultBufferSize)

	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[string]map[int]chan any)
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan any)
	}
	id := b.nextSubID
	b.nextSubID++
	b.subs[topic][id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs, ok := b.subs[topic]
		if !ok {
			return
		}
		if _, ok := subs[id]; !ok {
			// ya cancelado; cerrar dos veces reventaría el canal
			return
		}
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.subs, topic)
		}
		close(ch)
	}

	return ch, unsubscribe
}

// Close corta las publicaciones. Los canales siguen siendo responsabilidad
// de cada unsubscribe.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

func (b *Bus) recordDrop(topic string) {
	b.dropMu.Lock()
	defer b.dropMu.Unlock()
	if b.dropCounts == nil {
		b.dropCounts = make(map[string]uint64)
	}
	b.dropCounts[topic]++
	if b.dropCounts[topic]%100 == 1 {
		log.Printf("events: dropping messages for %s (total drops: %d)", topic, b.dropCounts[topic])
	}
}
