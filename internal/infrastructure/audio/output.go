package audio

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/hajimehoshi/go-mp3"
	"github.com/hajimehoshi/oto/v2"

	"yamBot/internal/domain"
)

const (
	outputChannels       = 2
	outputBytesPerSample = 2
)

var shared struct {
	once sync.Once
	ctx  *oto.Context
	rate int
	err  error
}

// prepare inicializa el contexto de audio del proceso con la tasa de la
// primera fuente. oto solo permite un contexto por proceso, así que las
// fuentes que lleguen con otra tasa se remuestrean a esta.
func prepare(sampleRate int) (*oto.Context, int, error) {
	shared.once.Do(func() {
		ctx, ready, err := oto.NewContext(sampleRate, outputChannels, outputBytesPerSample)
		if err != nil {
			shared.err = err
			return
		}
		<-ready
		shared.ctx = ctx
		shared.rate = sampleRate
	})
	if shared.err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrAudioDeviceUnavailable, shared.err)
	}
	return shared.ctx, shared.rate, nil
}

// Device abre salidas sobre el dispositivo de audio del sistema.
type Device struct{}

func NewDevice() *Device {
	return &Device{}
}

func (d *Device) Open() (domain.AudioOutput, error) {
	return &Output{volume: 1}, nil
}

// Output reproduce un fragmento cada vez: Append decodifica (MP3 o WAV),
// arranca la reproducción y vuelve enseguida; Empty dice cuándo terminó.
type Output struct {
	mu     sync.Mutex
	player oto.Player
	volume float64
	closed bool
}

func (o *Output) Append(data []byte) error {
	pcm, rate, err := decodePCM(data)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAudioDecode, err)
	}

	ctx, deviceRate, err := prepare(rate)
	if err != nil {
		return err
	}
	pcm = resamplePCM16(pcm, rate, deviceRate)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("%w: salida cerrada", domain.ErrAudioDeviceUnavailable)
	}
	if o.player != nil {
		o.player.Close()
	}

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	player.SetVolume(o.volume)
	player.Play()
	o.player = player
	return nil
}

func (o *Output) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = volume
	if o.player != nil {
		o.player.SetVolume(volume)
	}
}

func (o *Output) Empty() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.player == nil || !o.player.IsPlaying()
}

func (o *Output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
}

func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	return nil
}

// decodePCM convierte el archivo a PCM estéreo de 16 bits y devuelve la
// tasa de muestreo de la fuente.
func decodePCM(data []byte) ([]byte, int, error) {
	if looksLikeWAV(data) {
		return decodeWAV(data)
	}
	return decodeMP3(data)
}

func decodeMP3(data []byte) ([]byte, int, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decoder: %w", err)
	}
	// go-mp3 siempre decodifica a 2 canales de 16 bits
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 read: %w", err)
	}
	return pcm, decoder.SampleRate(), nil
}

// resamplePCM16 ajusta PCM estéreo de 16 bits a la tasa del contexto
// duplicando o saltando frames. Suficiente para voz y efectos cortos.
func resamplePCM16(data []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return data
	}
	const frameSize = outputChannels * outputBytesPerSample
	frames := len(data) / frameSize
	outFrames := int(int64(frames) * int64(to) / int64(from))
	out := make([]byte, outFrames*frameSize)
	for i := 0; i < outFrames; i++ {
		src := int(int64(i) * int64(from) / int64(to))
		if src >= frames {
			src = frames - 1
		}
		copy(out[i*frameSize:(i+1)*frameSize], data[src*frameSize:(src+1)*frameSize])
	}
	return out
}

var _ domain.AudioDevice = (*Device)(nil)
var _ domain.AudioOutput = (*Output)(nil)
