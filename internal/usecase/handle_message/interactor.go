// Package handle_message
package handle_message

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"yamBot/internal/domain"
	"yamBot/internal/usecase/commands"
	"yamBot/internal/usecase/tts"
)

const ttsTrigger = "tts"

// SoundEffects es lo que el interactor necesita de la capa de sonidos:
// resolver un trigger a un archivo y encolar la reproducción.
type SoundEffects interface {
	Lookup(name string) (path string, ok bool)
	Play(name, path, requestedBy string, volume float64) bool
}

// Notifier publica avisos hacia el panel.
type Notifier interface {
	Warn(source, message string)
}

type Config struct {
	Executor  *commands.Executor
	TTS       *tts.Service
	Languages *tts.Catalog
	Sounds    SoundEffects
	Settings  domain.SettingsRepository
	Out       domain.OutgoingMessagePort
	Notifier  Notifier
	Prefix    string
}

// Interactor decide qué hacer con cada mensaje del chat: primero los
// comandos registrados, después los triggers de TTS y al final los sonidos.
// El primero que reclama el trigger se lo queda.
type Interactor struct {
	executor  *commands.Executor
	tts       *tts.Service
	languages *tts.Catalog
	sounds    SoundEffects
	settings  domain.SettingsRepository
	out       domain.OutgoingMessagePort
	notifier  Notifier
	prefix    string
}

func NewInteractor(cfg Config) *Interactor {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "!"
	}
	return &Interactor{
		executor:  cfg.Executor,
		tts:       cfg.TTS,
		languages: cfg.Languages,
		sounds:    cfg.Sounds,
		settings:  cfg.Settings,
		out:       cfg.Out,
		notifier:  cfg.Notifier,
		prefix:    prefix,
	}
}

func (uc *Interactor) Handle(ctx context.Context, msg domain.Message) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if !strings.HasPrefix(text, uc.prefix) {
		return nil
	}

	withoutPrefix := strings.TrimSpace(strings.TrimPrefix(text, uc.prefix))
	parts := strings.Fields(withoutPrefix)
	if len(parts) == 0 {
		return nil
	}

	trigger := strings.ToLower(parts[0])
	// el resto del mensaje viaja tal cual: el espaciado interno del
	// usuario llega entero al TTS
	payload := strings.TrimSpace(strings.TrimPrefix(withoutPrefix, parts[0]))

	if uc.executor != nil {
		res := uc.executor.Execute(commands.ExecutionContext{
			Trigger: trigger,
			Sender:  msg,
			At:      time.Now(),
		})
		switch res.Status {
		case commands.StatusSuccess:
			return uc.dispatchAction(ctx, msg, res.Action)
		case commands.StatusOnCooldown:
			uc.warn(fmt.Sprintf("⏳ %s%s en cooldown (%s restantes)",
				uc.prefix, trigger, res.Remaining.Round(time.Second)))
			return nil
		case commands.StatusPermissionDenied:
			uc.warn(fmt.Sprintf("🔒 %s no puede usar %s%s", msg.Username, uc.prefix, trigger))
			return nil
		}
	}

	if uc.tryTTS(ctx, msg, trigger, payload) {
		return nil
	}
	uc.trySound(ctx, msg, trigger)
	return nil
}

// dispatchAction manda el texto del comando por el canal que pide la acción:
// respuesta citada o mensaje suelto.
func (uc *Interactor) dispatchAction(ctx context.Context, msg domain.Message, action domain.CommandAction) error {
	if uc.out == nil {
		return nil
	}
	if action.Kind == domain.ActionReply {
		return uc.out.ReplyMessage(ctx, msg.Platform, msg.ChannelID, msg.ID, action.Text)
	}
	return uc.out.SendMessage(ctx, msg.Platform, msg.ChannelID, action.Text)
}

// tryTTS reclama el trigger si es "tts" o un código de idioma activo.
// Devuelve true cuando lo consumió, aunque acabe sin sintetizar nada.
func (uc *Interactor) tryTTS(ctx context.Context, msg domain.Message, trigger, payload string) bool {
	if uc.tts == nil {
		return false
	}

	var language string
	switch {
	case trigger == ttsTrigger:
		// la voz por defecto la pone el servicio al procesar
	case uc.languages != nil && uc.languages.Has(trigger):
		if !uc.languages.IsEnabled(trigger) {
			return false
		}
		language, _ = uc.languages.Canonical(trigger)
	default:
		return false
	}

	settings := uc.featureSettings(ctx, domain.FeatureTTS)
	if !settings.Enabled {
		return true
	}
	if !settings.Permissions.Allows(msg) {
		return true
	}
	if payload == "" {
		uc.warn(fmt.Sprintf("El TTS necesita un texto: %s%s hola mundo", uc.prefix, trigger))
		return true
	}

	// el id del mensaje viaja hasta la cola: borrar un mensaje del chat
	// permite quitar su item pendiente por el mismo id
	req := domain.TTSRequest{
		ID:       msg.ID,
		Username: msg.Username,
		Language: language,
		Text:     payload,
	}
	// la síntesis tarda; no bloqueamos el hilo de mensajes
	go func() {
		if err := uc.tts.Process(ctx, req); err != nil {
			log.Printf("handle_message: tts de %s: %v", msg.Username, err)
		}
	}()
	return true
}

// trySound reclama el trigger si hay un sonido con ese nombre en el catálogo.
func (uc *Interactor) trySound(ctx context.Context, msg domain.Message, trigger string) bool {
	if uc.sounds == nil {
		return false
	}
	path, ok := uc.sounds.Lookup(trigger)
	if !ok {
		return false
	}

	settings := uc.featureSettings(ctx, domain.FeatureSFX)
	if !settings.Enabled || !settings.Permissions.Allows(msg) {
		return true
	}

	if !uc.sounds.Play(trigger, path, msg.Username, settings.Volume) {
		uc.warn("La cola de sonidos está llena, prueba en un momento")
	}
	return true
}

func (uc *Interactor) featureSettings(ctx context.Context, feature string) domain.FeatureSettings {
	if uc.settings == nil {
		return domain.DefaultFeatureSettings()
	}
	settings, err := uc.settings.FeatureSettings(ctx, feature)
	if err != nil {
		log.Printf("handle_message: ajustes de %s: %v", feature, err)
		return domain.DefaultFeatureSettings()
	}
	return settings
}

func (uc *Interactor) warn(message string) {
	if uc.notifier == nil {
		return
	}
	uc.notifier.Warn("chat", message)
}
