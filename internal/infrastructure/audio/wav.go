package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

func looksLikeWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// decodeWAV lee un WAV PCM sin comprimir de 16 bits (mono o estéreo) y lo
// deja en el formato del contexto: estéreo, 16 bits little endian.
func decodeWAV(data []byte) ([]byte, int, error) {
	if !looksLikeWAV(data) {
		return nil, 0, errors.New("wav: cabecera RIFF inválida")
	}

	var (
		haveFmt       bool
		channels      int
		sampleRate    int
		bitsPerSample int
		pcm           []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if chunkSize < 0 || body+chunkSize > len(data) {
			// tolerante con tamaños mal escritos: usa lo que queda
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, errors.New("wav: chunk fmt demasiado corto")
			}
			format := binary.LittleEndian.Uint16(data[body:])
			if format != 1 {
				return nil, 0, fmt.Errorf("wav: solo PCM sin comprimir (formato %d)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++ // los chunks RIFF van alineados a 2 bytes
		}
	}

	if !haveFmt {
		return nil, 0, errors.New("wav: falta el chunk fmt")
	}
	if pcm == nil {
		return nil, 0, errors.New("wav: falta el chunk data")
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("wav: solo 16 bits por muestra (%d)", bitsPerSample)
	}
	if sampleRate <= 0 {
		return nil, 0, fmt.Errorf("wav: tasa de muestreo inválida (%d)", sampleRate)
	}

	switch channels {
	case 2:
		return pcm, sampleRate, nil
	case 1:
		return monoToStereo(pcm), sampleRate, nil
	default:
		return nil, 0, fmt.Errorf("wav: %d canales no soportados", channels)
	}
}

func monoToStereo(pcm []byte) []byte {
	out := make([]byte, 0, len(pcm)*2)
	for i := 0; i+1 < len(pcm); i += 2 {
		out = append(out, pcm[i], pcm[i+1], pcm[i], pcm[i+1])
	}
	return out
}
