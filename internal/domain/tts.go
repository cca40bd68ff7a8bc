package domain

import "time"

// TTSRequest identifica una petición de voz originada por un mensaje del
// chat o por el panel. Inmutable una vez creada.
type TTSRequest struct {
	ID        string
	Username  string
	Language  string
	Text      string
	CreatedAt time.Time
}

// TTSAudioChunk guarda el audio sintetizado de un fragmento del texto.
// Key identifica el artefacto: "<request.id>-<índice>", único incluso si
// el mismo texto se repite.
type TTSAudioChunk struct {
	Index int
	Key   string
	Data  []byte
}

// TTSQueueItem agrupa la petición con sus fragmentos de audio, en el mismo
// orden en que se partió el texto. Vive desde que la síntesis termina hasta
// que el scheduler lo reproduce o lo descarta.
type TTSQueueItem struct {
	Request TTSRequest
	Chunks  []TTSAudioChunk
}
