package sfx

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"yamBot/internal/app/events"
	"yamBot/internal/domain"
)

const defaultQueueSize = 16

// PlayRequest es un efecto listo para sonar.
type PlayRequest struct {
	Name        string
	Path        string
	Volume      float64
	RequestedBy string
}

// Player reproduce efectos en su propia goroutine, separada de la del TTS:
// un efecto no espera a que termine una locución. Enqueue nunca bloquea; si
// el buffer está lleno el efecto se pierde y quien llama decide si avisa.
type Player struct {
	device domain.AudioDevice
	bus    *events.Bus

	requests     chan PlayRequest
	pollInterval time.Duration
	wg           sync.WaitGroup
}

func NewPlayer(device domain.AudioDevice, bus *events.Bus, queueSize int) *Player {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Player{
		device:       device,
		bus:          bus,
		requests:     make(chan PlayRequest, queueSize),
		pollInterval: 50 * time.Millisecond,
	}
}

func (p *Player) Start(ctx context.Context) {
	if p.device == nil {
		log.Println("sfx: sin dispositivo de audio, no arranco")
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
}

func (p *Player) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-p.requests:
			if err := p.play(ctx, req); err != nil {
				log.Printf("sfx: %s: %v", req.Name, err)
			}
		}
	}
}

// Enqueue intenta encolar el efecto. Devuelve false con el buffer lleno.
func (p *Player) Enqueue(req PlayRequest) bool {
	if p == nil || req.Path == "" {
		return false
	}
	select {
	case p.requests <- req:
		return true
	default:
		return false
	}
}

func (p *Player) play(ctx context.Context, req PlayRequest) error {
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return fmt.Errorf("leyendo %s: %w", req.Path, err)
	}

	out, err := p.device.Open()
	if err != nil {
		return fmt.Errorf("salida de audio: %w", err)
	}

	out.SetVolume(req.Volume)
	if err := out.Append(data); err != nil {
		out.Close()
		if errors.Is(err, domain.ErrAudioDeviceUnavailable) {
			return fmt.Errorf("dispositivo: %w", err)
		}
		return fmt.Errorf("decodificando: %w", err)
	}

	if p.bus != nil {
		p.bus.Publish(events.TopicSoundPlayed, events.NewSoundPlayedDTO(req.Name, req.RequestedBy))
	}

	// la espera va aparte para que dos efectos puedan solaparse
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer out.Close()
		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		for {
			if out.Empty() {
				return
			}
			select {
			case <-ctx.Done():
				out.Stop()
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

// Close espera a que el bucle y las esperas de audio sueltas terminen; se
// cortan cancelando el contexto de Start.
func (p *Player) Close() {
	p.wg.Wait()
}
