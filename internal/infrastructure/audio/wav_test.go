package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildWAV(t *testing.T, format uint16, channels uint16, sampleRate uint32, bitsPerSample uint16, samples []int16) []byte {
	t.Helper()

	var data bytes.Buffer
	for _, s := range samples {
		if err := binary.Write(&data, binary.LittleEndian, s); err != nil {
			t.Fatalf("escribiendo muestras: %v", err)
		}
	}

	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, format)
	binary.Write(&fmtChunk, binary.LittleEndian, channels)
	binary.Write(&fmtChunk, binary.LittleEndian, sampleRate)
	byteRate := sampleRate * uint32(channels) * uint32(bitsPerSample) / 8
	binary.Write(&fmtChunk, binary.LittleEndian, byteRate)
	blockAlign := channels * bitsPerSample / 8
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, bitsPerSample)

	var file bytes.Buffer
	file.WriteString("RIFF")
	binary.Write(&file, binary.LittleEndian, uint32(4+8+fmtChunk.Len()+8+data.Len()))
	file.WriteString("WAVE")
	file.WriteString("fmt ")
	binary.Write(&file, binary.LittleEndian, uint32(fmtChunk.Len()))
	file.Write(fmtChunk.Bytes())
	file.WriteString("data")
	binary.Write(&file, binary.LittleEndian, uint32(data.Len()))
	file.Write(data.Bytes())
	return file.Bytes()
}

func TestDecodeWAVStereo(t *testing.T) {
	samples := []int16{100, -100, 200, -200}
	raw := buildWAV(t, 1, 2, 44100, 16, samples)

	pcm, rate, err := decodeWAV(raw)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if rate != 44100 {
		t.Fatalf("tasa = %d, esperaba 44100", rate)
	}
	want := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		want = binary.LittleEndian.AppendUint16(want, uint16(s))
	}
	if !bytes.Equal(pcm, want) {
		t.Fatalf("pcm = %v, esperaba %v", pcm, want)
	}
}

func TestDecodeWAVMonoDuplicatesChannel(t *testing.T) {
	raw := buildWAV(t, 1, 1, 22050, 16, []int16{7, -7})

	pcm, rate, err := decodeWAV(raw)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if rate != 22050 {
		t.Fatalf("tasa = %d, esperaba 22050", rate)
	}
	var want []byte
	for _, s := range []int16{7, 7, -7, -7} {
		want = binary.LittleEndian.AppendUint16(want, uint16(s))
	}
	if !bytes.Equal(pcm, want) {
		t.Fatalf("pcm = %v, esperaba %v", pcm, want)
	}
}

func TestDecodeWAVRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"vacío", nil},
		{"cabecera ajena", []byte("ID3esto no es un wav para nada....")},
		{"comprimido", buildWAV(t, 3, 2, 44100, 16, []int16{1, 2})},
		{"ocho bits", buildWAV(t, 1, 2, 44100, 8, []int16{1, 2})},
		{"cuatro canales", buildWAV(t, 1, 4, 44100, 16, []int16{1, 2, 3, 4})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := decodeWAV(tc.raw); err == nil {
				t.Fatal("esperaba error")
			}
		})
	}
}

func TestDecodePCMDispatchesWAV(t *testing.T) {
	raw := buildWAV(t, 1, 2, 48000, 16, []int16{1, 2})
	_, rate, err := decodePCM(raw)
	if err != nil {
		t.Fatalf("decodePCM: %v", err)
	}
	if rate != 48000 {
		t.Fatalf("tasa = %d, esperaba 48000", rate)
	}
}

func TestResamplePCM16(t *testing.T) {
	frame := func(l, r int16) []byte {
		b := binary.LittleEndian.AppendUint16(nil, uint16(l))
		return binary.LittleEndian.AppendUint16(b, uint16(r))
	}
	src := append(append(frame(1, 1), frame(2, 2)...), frame(3, 3)...)

	t.Run("misma tasa no copia", func(t *testing.T) {
		if got := resamplePCM16(src, 44100, 44100); !bytes.Equal(got, src) {
			t.Fatal("esperaba los mismos datos")
		}
	})

	t.Run("duplica al subir", func(t *testing.T) {
		got := resamplePCM16(src, 22050, 44100)
		want := append(append(frame(1, 1), frame(1, 1)...), frame(2, 2)...)
		want = append(append(want, frame(2, 2)...), frame(3, 3)...)
		want = append(want, frame(3, 3)...)
		if !bytes.Equal(got, want) {
			t.Fatalf("frames = %d, esperaba %d duplicados", len(got)/4, len(want)/4)
		}
	})

	t.Run("salta al bajar", func(t *testing.T) {
		got := resamplePCM16(src, 44100, 14700)
		if len(got) != 4 {
			t.Fatalf("frames = %d, esperaba 1", len(got)/4)
		}
	})
}
