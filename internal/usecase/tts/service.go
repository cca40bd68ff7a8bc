package tts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hegedustibor/htgo-tts/voices"

	"yamBot/internal/domain"
)

// DefaultMaxChunkLength es el máximo de runas por fragmento que acepta el
// endpoint de Google Translate sin truncar.
const DefaultMaxChunkLength = 200

type VoiceOption struct {
	Code  string
	Label string
}

// Synthesizer convierte un fragmento de texto en audio MP3.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Queue recibe los items ya sintetizados. La implementación decide qué hacer
// con ellos (encolar para reproducción, publicar snapshot, etc).
type Queue interface {
	Add(item *domain.TTSQueueItem)
}

// Notifier avisa al panel de incidencias de la síntesis sin acoplar este
// paquete al bus de eventos.
type Notifier interface {
	Info(source, message string)
	Warn(source, message string)
}

// Service parte el texto en fragmentos, sintetiza cada uno en orden y encola
// el item completo. La síntesis es secuencial dentro de una petición; quien
// llama decide si lanza Process en su propia goroutine para no bloquear la
// entrada de mensajes.
type Service struct {
	repo     domain.SettingsRepository
	synth    Synthesizer
	queue    Queue
	notifier Notifier

	voices      []VoiceOption
	maxChunkLen int
}

func NewService(repo domain.SettingsRepository, synth Synthesizer, queue Queue, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		synth:    synth,
		queue:    queue,
		notifier: notifier,
		voices: []VoiceOption{
			{Code: voices.Spanish, Label: "Español"},
			{Code: "es-es", Label: "Español España"},
			{Code: voices.English, Label: "Inglés US"},
			{Code: voices.EnglishUK, Label: "Inglés UK"},
			{Code: voices.Portuguese, Label: "Portugués"},
			{Code: voices.French, Label: "Francés"},
			{Code: voices.German, Label: "Alemán"},
		},
		maxChunkLen: DefaultMaxChunkLength,
	}
}

// SplitText parte el texto en fragmentos de como mucho maxLen runas sin
// romper palabras. Un texto que ya cabe vuelve en un único fragmento tal
// cual, solo recortado por los bordes; si no cabe, acumula palabra a palabra
// y cierra el fragmento cuando la siguiente ya no entra. Una palabra más
// larga que maxLen va entera en su propio fragmento.
func SplitText(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxChunkLength
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) <= maxLen {
		return []string{trimmed}
	}

	var chunks []string
	var b strings.Builder
	length := 0

	for _, word := range strings.Fields(trimmed) {
		wordLen := utf8.RuneCountInString(word)
		if length > 0 && length+1+wordLen > maxLen {
			chunks = append(chunks, b.String())
			b.Reset()
			length = 0
		}
		if length > 0 {
			b.WriteByte(' ')
			length++
		}
		b.WriteString(word)
		length += wordLen
	}

	if length > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// Process sintetiza la petición fragmento a fragmento y encola el resultado.
// Un fragmento que falla se salta (con aviso al panel); solo devuelve error
// si no se pudo sintetizar ninguno o si el contexto se cancela a mitad.
func (s *Service) Process(ctx context.Context, req domain.TTSRequest) error {
	if s == nil || s.synth == nil || s.queue == nil {
		return fmt.Errorf("tts: servicio sin configurar")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return fmt.Errorf("tts: texto vacío")
	}
	req.Text = text
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = s.DefaultLanguage(ctx)
	}

	parts := SplitText(req.Text, s.maxChunkLen)
	chunks := make([]domain.TTSAudioChunk, 0, len(parts))
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("tts: síntesis cancelada: %w", err)
		}
		data, err := s.synth.Synthesize(ctx, part, req.Language)
		if err != nil {
			log.Printf("tts: fragmento %d de %s falló: %v", i, req.ID, err)
			s.warn(fmt.Sprintf("No pude sintetizar un fragmento del TTS de %s", req.Username))
			continue
		}
		chunks = append(chunks, domain.TTSAudioChunk{
			Index: i,
			Key:   fmt.Sprintf("%s-%d", req.ID, i),
			Data:  data,
		})
	}

	if len(chunks) == 0 {
		return fmt.Errorf("tts: ningún fragmento sintetizado para %s", req.ID)
	}

	s.queue.Add(&domain.TTSQueueItem{Request: req, Chunks: chunks})
	log.Printf("tts: encolado %s de %s (%d fragmentos)", req.ID, req.Username, len(chunks))
	return nil
}

func (s *Service) ListVoices() []VoiceOption {
	return append([]VoiceOption(nil), s.voices...)
}

func (s *Service) SetVoice(ctx context.Context, code string) (VoiceOption, error) {
	option, ok := s.findVoice(code)
	if !ok {
		return VoiceOption{}, fmt.Errorf("voz no soportada")
	}
	if s.repo != nil {
		if err := s.repo.SetTTSVoice(ctx, option.Code); err != nil {
			return VoiceOption{}, fmt.Errorf("no pude guardar la voz: %w", err)
		}
	}
	return option, nil
}

func (s *Service) CurrentVoice(ctx context.Context) VoiceOption {
	if s.repo != nil {
		if stored, err := s.repo.TTSVoice(ctx); err == nil {
			if option, ok := s.findVoice(stored); ok {
				return option
			}
		}
	}
	option, _ := s.findVoice("")
	return option
}

// DefaultLanguage es el código que usa !tts cuando el mensaje no trae idioma.
func (s *Service) DefaultLanguage(ctx context.Context) string {
	return s.CurrentVoice(ctx).Code
}

func (s *Service) findVoice(code string) (VoiceOption, bool) {
	code = normalizeVoice(code)
	if code == "" {
		return s.voices[0], true
	}
	for _, option := range s.voices {
		if normalizeVoice(option.Code) == code {
			return option, true
		}
	}
	// allow prefix fallback (es-es -> es)
	if idx := strings.Index(code, "-"); idx > 0 {
		return s.findVoice(code[:idx])
	}
	return VoiceOption{}, false
}

func (s *Service) warn(message string) {
	if s.notifier != nil {
		s.notifier.Warn("tts", message)
	}
}

func normalizeVoice(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
