package domain

import "errors"

// Errores del dispositivo de audio. El scheduler los distingue: un fallo de
// decodificación salta solo ese fragmento; un dispositivo no disponible
// abandona el elemento entero.
var (
	ErrAudioDeviceUnavailable = errors.New("audio device unavailable")
	ErrAudioDecode            = errors.New("audio decode failed")
)

// AudioOutput es una salida de sonido ya abierta: acepta fragmentos, ajusta
// volumen, dice si terminó de sonar y se puede cortar. Append devuelve
// ErrAudioDecode (envuelto) si el fragmento no se entiende y
// ErrAudioDeviceUnavailable si la salida murió.
type AudioOutput interface {
	Append(data []byte) error
	SetVolume(volume float64)
	Empty() bool
	Stop()
	Close() error
}

// AudioDevice abre salidas de sonido. Cada consumidor (TTS, efectos) abre
// las suyas y las cierra al terminar.
type AudioDevice interface {
	Open() (AudioOutput, error)
}
