package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"yamBot/internal/domain"
)

type fakeSettingsRepo struct {
	voice     string
	overrides map[string]bool
	saved     map[string]domain.FeatureSettings
	failLang  bool
}

func (f *fakeSettingsRepo) FeatureSettings(_ context.Context, feature string) (domain.FeatureSettings, error) {
	if s, ok := f.saved[feature]; ok {
		return s, nil
	}
	return domain.DefaultFeatureSettings(), nil
}

func (f *fakeSettingsRepo) SaveFeatureSettings(_ context.Context, feature string, settings domain.FeatureSettings) error {
	if f.saved == nil {
		f.saved = make(map[string]domain.FeatureSettings)
	}
	f.saved[feature] = settings
	return nil
}

func (f *fakeSettingsRepo) TTSVoice(_ context.Context) (string, error) {
	return f.voice, nil
}

func (f *fakeSettingsRepo) SetTTSVoice(_ context.Context, code string) error {
	f.voice = code
	return nil
}

func (f *fakeSettingsRepo) LanguageOverrides(_ context.Context) (map[string]bool, error) {
	return f.overrides, nil
}

func (f *fakeSettingsRepo) SetLanguageEnabled(_ context.Context, code string, enabled bool) error {
	if f.failLang {
		return errors.New("repo down")
	}
	if f.overrides == nil {
		f.overrides = make(map[string]bool)
	}
	f.overrides[code] = enabled
	return nil
}

type fakeSynth struct {
	calls    []string
	langs    []string
	failures map[int]bool
}

func (f *fakeSynth) Synthesize(_ context.Context, text, lang string) ([]byte, error) {
	call := len(f.calls)
	f.calls = append(f.calls, text)
	f.langs = append(f.langs, lang)
	if f.failures[call] {
		return nil, errors.New("synth down")
	}
	return []byte("mp3:" + text), nil
}

type fakeQueue struct {
	items []*domain.TTSQueueItem
}

func (f *fakeQueue) Add(item *domain.TTSQueueItem) {
	f.items = append(f.items, item)
}

type fakeNotifier struct {
	infos []string
	warns []string
}

func (f *fakeNotifier) Info(_, message string) { f.infos = append(f.infos, message) }
func (f *fakeNotifier) Warn(_, message string) { f.warns = append(f.warns, message) }

func TestSplitText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{
			name:   "empty text",
			text:   "   ",
			maxLen: 10,
			want:   nil,
		},
		{
			name:   "fits in one chunk",
			text:   "hola mundo",
			maxLen: 10,
			want:   []string{"hola mundo"},
		},
		{
			name:   "closes chunk when next word overflows",
			text:   "hola mundo feliz",
			maxLen: 10,
			want:   []string{"hola mundo", "feliz"},
		},
		{
			name:   "oversized word goes whole in its own chunk",
			text:   "hola extraordinario si",
			maxLen: 5,
			want:   []string{"hola", "extraordinario", "si"},
		},
		{
			name:   "length counted in runes",
			text:   "añil añil",
			maxLen: 4,
			want:   []string{"añil", "añil"},
		},
		{
			name:   "short text keeps its internal spacing",
			text:   "  hola \t mundo  ",
			maxLen: 200,
			want:   []string{"hola \t mundo"},
		},
		{
			name:   "short circuit counts runes, not bytes",
			text:   "ñoño ñoño",
			maxLen: 9,
			want:   []string{"ñoño ñoño"},
		},
		{
			name:   "long text rejoins words with single spaces",
			text:   "a \t b \n c",
			maxLen: 3,
			want:   []string{"a b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitText(tt.text, tt.maxLen)
			if len(got) != len(tt.want) {
				t.Fatalf("chunks = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
			for _, chunk := range got {
				if utf8.RuneCountInString(chunk) > tt.maxLen && strings.ContainsRune(chunk, ' ') {
					t.Errorf("multi-word chunk %q longer than %d runes", chunk, tt.maxLen)
				}
			}
		})
	}
}

func TestSplitTextDefaultsMaxLen(t *testing.T) {
	text := strings.Repeat("a", 150) + " " + strings.Repeat("b", 150)
	got := SplitText(text, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks with default max length, got %d", len(got))
	}
}

func TestProcessEnqueuesChunkedAudio(t *testing.T) {
	synth := &fakeSynth{}
	queue := &fakeQueue{}
	svc := NewService(&fakeSettingsRepo{}, synth, queue, &fakeNotifier{})
	svc.maxChunkLen = 10

	req := domain.TTSRequest{ID: "req-1", Username: "ana", Language: "es", Text: "hola mundo feliz"}
	if err := svc.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(queue.items) != 1 {
		t.Fatalf("expected 1 queued item, got %d", len(queue.items))
	}
	item := queue.items[0]
	if item.Request.ID != "req-1" || item.Request.Language != "es" {
		t.Errorf("request = %+v", item.Request)
	}
	if len(item.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(item.Chunks))
	}
	for i, chunk := range item.Chunks {
		wantKey := fmt.Sprintf("req-1-%d", i)
		if chunk.Key != wantKey {
			t.Errorf("chunk[%d].Key = %q, want %q", i, chunk.Key, wantKey)
		}
		if chunk.Index != i {
			t.Errorf("chunk[%d].Index = %d", i, chunk.Index)
		}
	}
	if string(item.Chunks[0].Data) != "mp3:hola mundo" {
		t.Errorf("chunk[0].Data = %q", item.Chunks[0].Data)
	}
	for _, lang := range synth.langs {
		if lang != "es" {
			t.Errorf("synthesizer called with lang %q, want es", lang)
		}
	}
}

func TestProcessSkipsFailedChunk(t *testing.T) {
	synth := &fakeSynth{failures: map[int]bool{0: true}}
	queue := &fakeQueue{}
	notifier := &fakeNotifier{}
	svc := NewService(&fakeSettingsRepo{}, synth, queue, notifier)
	svc.maxChunkLen = 10

	req := domain.TTSRequest{ID: "req-2", Username: "ana", Language: "es", Text: "hola mundo feliz"}
	if err := svc.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(queue.items) != 1 {
		t.Fatalf("expected queued item despite one failed chunk")
	}
	chunks := queue.items[0].Chunks
	if len(chunks) != 1 {
		t.Fatalf("expected 1 surviving chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 1 || chunks[0].Key != "req-2-1" {
		t.Errorf("surviving chunk keeps original position: %+v", chunks[0])
	}
	if len(notifier.warns) != 1 {
		t.Errorf("expected 1 warning, got %d", len(notifier.warns))
	}
}

func TestProcessAllChunksFail(t *testing.T) {
	synth := &fakeSynth{failures: map[int]bool{0: true, 1: true}}
	queue := &fakeQueue{}
	svc := NewService(&fakeSettingsRepo{}, synth, queue, &fakeNotifier{})
	svc.maxChunkLen = 10

	req := domain.TTSRequest{ID: "req-3", Username: "ana", Language: "es", Text: "hola mundo feliz"}
	if err := svc.Process(context.Background(), req); err == nil {
		t.Fatal("expected error when every chunk fails")
	}
	if len(queue.items) != 0 {
		t.Errorf("nothing should be queued, got %d items", len(queue.items))
	}
}

func TestProcessEmptyText(t *testing.T) {
	synth := &fakeSynth{}
	svc := NewService(&fakeSettingsRepo{}, synth, &fakeQueue{}, &fakeNotifier{})

	if err := svc.Process(context.Background(), domain.TTSRequest{Text: "   "}); err == nil {
		t.Fatal("expected error for empty text")
	}
	if len(synth.calls) != 0 {
		t.Errorf("synthesizer must not be called, got %d calls", len(synth.calls))
	}
}

func TestProcessFillsDefaults(t *testing.T) {
	synth := &fakeSynth{}
	queue := &fakeQueue{}
	svc := NewService(&fakeSettingsRepo{voice: "en"}, synth, queue, &fakeNotifier{})

	if err := svc.Process(context.Background(), domain.TTSRequest{Username: "ana", Text: "hello"}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	item := queue.items[0]
	if item.Request.ID == "" {
		t.Error("expected generated request ID")
	}
	if item.Request.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be filled")
	}
	if item.Request.Language != "en" {
		t.Errorf("language = %q, want stored voice en", item.Request.Language)
	}
	if item.Chunks[0].Key != item.Request.ID+"-0" {
		t.Errorf("chunk key %q not derived from generated ID", item.Chunks[0].Key)
	}
}

func TestProcessCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queue := &fakeQueue{}
	svc := NewService(&fakeSettingsRepo{}, &fakeSynth{}, queue, &fakeNotifier{})

	err := svc.Process(ctx, domain.TTSRequest{Text: "hola"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(queue.items) != 0 {
		t.Error("cancelled request must not enqueue")
	}
}

func TestVoiceSelection(t *testing.T) {
	repo := &fakeSettingsRepo{}
	svc := NewService(repo, &fakeSynth{}, &fakeQueue{}, &fakeNotifier{})

	option, err := svc.SetVoice(context.Background(), "EN")
	if err != nil {
		t.Fatalf("SetVoice: %v", err)
	}
	if option.Code != "en" {
		t.Errorf("voice code = %q, want en", option.Code)
	}
	if repo.voice != "en" {
		t.Errorf("voice not persisted, repo has %q", repo.voice)
	}
	if got := svc.CurrentVoice(context.Background()); got.Code != "en" {
		t.Errorf("CurrentVoice = %q, want en", got.Code)
	}

	if _, err := svc.SetVoice(context.Background(), "xx-yy"); err == nil {
		t.Error("expected error for unsupported voice")
	}
}

func TestCurrentVoicePrefixFallback(t *testing.T) {
	// un código regional guardado cae al idioma base
	repo := &fakeSettingsRepo{voice: "es-MX"}
	svc := NewService(repo, &fakeSynth{}, &fakeQueue{}, &fakeNotifier{})

	if got := svc.CurrentVoice(context.Background()); got.Code != "es" {
		t.Errorf("CurrentVoice = %q, want es", got.Code)
	}
}
