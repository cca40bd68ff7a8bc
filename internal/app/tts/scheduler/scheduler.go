package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"yamBot/internal/app/events"
	"yamBot/internal/app/tts/queue"
	"yamBot/internal/domain"
)

const defaultInterval = 50 * time.Millisecond

type Config struct {
	Queue    *queue.Queue
	Device   domain.AudioDevice
	Settings domain.SettingsRepository
	Bus      *events.Bus

	// PollInterval marca cada cuánto se comprueba el fin de un fragmento y
	// el flag de salto; IdleInterval, cada cuánto se mira la cola vacía.
	PollInterval time.Duration
	IdleInterval time.Duration
}

// Scheduler es la única goroutine que toca la salida de audio del TTS: saca
// items de la cola uno a uno y reproduce sus fragmentos en orden. El salto y
// la lista de ignorados viven en la cola; aquí solo se consultan.
type Scheduler struct {
	cfg Config
	wg  sync.WaitGroup
}

func New(cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultInterval
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = defaultInterval
	}
	return &Scheduler{cfg: cfg}
}

// Start lanza el bucle de reproducción. Se detiene cancelando ctx; Close
// espera a que el bucle suelte todo.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.Queue == nil || s.cfg.Device == nil {
		log.Println("tts scheduler: configuración incompleta, no arranco")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	s.publishStatus("idle", "", "")
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		item := s.cfg.Queue.Pop()
		if item == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.IdleInterval):
			}
			continue
		}

		s.playItem(ctx, item)
	}
}

func (s *Scheduler) playItem(ctx context.Context, item *domain.TTSQueueItem) {
	// el descarte de un ignorado no emite nada: ni snapshot ni estado
	if s.cfg.Queue.IsIgnored(item.Request.Username) {
		log.Printf("tts scheduler: descarto %s de %s (usuario ignorado)", item.Request.ID, item.Request.Username)
		return
	}

	s.cfg.Queue.SetCurrentlyPlaying(item)
	s.publishQueue()
	s.publishStatus("speaking", item.Request.ID, "")

	err := s.playChunks(ctx, item)
	if err != nil && ctx.Err() == nil {
		log.Printf("tts scheduler: %v", err)
		s.publishStatus("error", item.Request.ID, err.Error())
	}

	// el flag de salto muere con el item, nunca alcanza al siguiente
	s.cfg.Queue.ClearSkip()
	s.cfg.Queue.SetCurrentlyPlaying(nil)
	s.publishQueue()
	s.publishStatus("idle", "", "")
}

func (s *Scheduler) playChunks(ctx context.Context, item *domain.TTSQueueItem) error {
	out, err := s.cfg.Device.Open()
	if err != nil {
		return fmt.Errorf("salida de audio: %w", err)
	}
	defer out.Close()

	out.SetVolume(s.currentVolume(ctx))

	for _, chunk := range item.Chunks {
		if err := ctx.Err(); err != nil {
			out.Stop()
			return err
		}
		if s.cfg.Queue.SkipRequested() {
			log.Printf("tts scheduler: salto %s antes del fragmento %d", item.Request.ID, chunk.Index)
			return nil
		}

		if err := out.Append(chunk.Data); err != nil {
			if errors.Is(err, domain.ErrAudioDeviceUnavailable) {
				return fmt.Errorf("fragmento %s: %w", chunk.Key, err)
			}
			// un fragmento ilegible no tumba el resto del item
			log.Printf("tts scheduler: fragmento %s no se pudo reproducir: %v", chunk.Key, err)
			continue
		}

		skipped, err := s.waitChunk(ctx, out)
		if err != nil {
			return err
		}
		if skipped {
			log.Printf("tts scheduler: salto %s durante el fragmento %d", item.Request.ID, chunk.Index)
			return nil
		}
	}
	return nil
}

// waitChunk espera a que el fragmento en curso termine, se pida saltarlo o
// se cancele el contexto.
func (s *Scheduler) waitChunk(ctx context.Context, out domain.AudioOutput) (bool, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if out.Empty() {
			return false, nil
		}
		if s.cfg.Queue.SkipRequested() {
			out.Stop()
			return true, nil
		}
		select {
		case <-ctx.Done():
			out.Stop()
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// currentVolume relee los ajustes en cada item para que los cambios del
// panel apliquen al siguiente sin reiniciar.
func (s *Scheduler) currentVolume(ctx context.Context) float64 {
	settings := domain.DefaultFeatureSettings()
	if s.cfg.Settings != nil {
		if stored, err := s.cfg.Settings.FeatureSettings(ctx, domain.FeatureTTS); err == nil {
			settings = stored
		}
	}
	return settings.Volume
}

func (s *Scheduler) publishQueue() {
	if s.cfg.Bus == nil {
		return
	}
	current, pending := s.cfg.Queue.SnapshotParts()
	s.cfg.Bus.Publish(events.TopicQueue, events.NewQueueSnapshotDTO(current, pending))
}

func (s *Scheduler) publishStatus(state, currentID, lastError string) {
	if s.cfg.Bus == nil {
		return
	}
	s.cfg.Bus.Publish(events.TopicTTSStatus, events.NewTTSStatusDTO(state, s.cfg.Queue.Len(), currentID, lastError))
}

// Close espera a que el bucle termine; se corta cancelando el contexto que
// recibió Start.
func (s *Scheduler) Close() {
	s.wg.Wait()
}
