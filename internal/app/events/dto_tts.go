package events

import (
	"time"

	"yamBot/internal/domain"
)

// QueueItemDTO resume un item de la cola de TTS para el panel. El audio no
// viaja por el bus, solo los metadatos.
type QueueItemDTO struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Language  string `json:"language"`
	Text      string `json:"text"`
	Chunks    int    `json:"chunks"`
	CreatedAt string `json:"created_at"`
}

func NewQueueItemDTO(item *domain.TTSQueueItem) QueueItemDTO {
	if item == nil {
		return QueueItemDTO{}
	}
	return QueueItemDTO{
		ID:        item.Request.ID,
		Username:  item.Request.Username,
		Language:  item.Request.Language,
		Text:      item.Request.Text,
		Chunks:    len(item.Chunks),
		CreatedAt: item.Request.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// QueueSnapshotDTO es la foto completa de la cola: lo que suena ahora y lo
// que espera. Se publica entera en cada cambio.
type QueueSnapshotDTO struct {
	Current *QueueItemDTO  `json:"current,omitempty"`
	Pending []QueueItemDTO `json:"pending"`
	Length  int            `json:"length"`
}

func NewQueueSnapshotDTO(current *domain.TTSQueueItem, pending []*domain.TTSQueueItem) QueueSnapshotDTO {
	snapshot := QueueSnapshotDTO{
		Pending: make([]QueueItemDTO, 0, len(pending)),
	}
	if current != nil {
		dto := NewQueueItemDTO(current)
		snapshot.Current = &dto
	}
	for _, item := range pending {
		if item == nil {
			continue
		}
		snapshot.Pending = append(snapshot.Pending, NewQueueItemDTO(item))
	}
	snapshot.Length = len(snapshot.Pending)
	if snapshot.Current != nil {
		snapshot.Length++
	}
	return snapshot
}

type TTSStatusDTO struct {
	State       string `json:"state"`
	QueueLength int    `json:"queue_length"`
	CurrentID   string `json:"current_id,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

func NewTTSStatusDTO(state string, queueLength int, currentID, lastError string) TTSStatusDTO {
	return TTSStatusDTO{
		State:       state,
		QueueLength: queueLength,
		CurrentID:   currentID,
		LastError:   lastError,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}
