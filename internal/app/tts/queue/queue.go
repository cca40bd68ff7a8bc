package queue

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"yamBot/internal/domain"
)

// Queue es la cola de reproducción de TTS compartida entre el scheduler, la
// entrada de mensajes y la API del panel. Un solo mutex protege pendientes,
// item en curso y lista de ignorados; el flag de salto va aparte como
// atómico para que la petición de saltar no espere al mutex.
type Queue struct {
	mu      sync.Mutex
	pending []*domain.TTSQueueItem
	current *domain.TTSQueueItem
	ignored map[string]struct{}

	skip atomic.Bool
}

func New() *Queue {
	return &Queue{ignored: make(map[string]struct{})}
}

func (q *Queue) Add(item *domain.TTSQueueItem) {
	if q == nil || item == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, item)
}

// Pop saca el primer item pendiente, o nil si no hay nada.
func (q *Queue) Pop() *domain.TTSQueueItem {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	return item
}

func (q *Queue) Peek() *domain.TTSQueueItem {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	return q.pending[0]
}

// Remove quita de pendientes el item con ese id de petición. El item en
// curso no se toca: para eso está el salto.
func (q *Queue) Remove(id string) bool {
	if q == nil || id == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.pending {
		if item.Request.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Clear vacía los pendientes y devuelve cuántos había.
func (q *Queue) Clear() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := len(q.pending)
	q.pending = nil
	return dropped
}

// DropUser quita de pendientes todos los items de ese usuario (baneos,
// ignorados nuevos). Devuelve cuántos quitó; el item en curso no se toca.
func (q *Queue) DropUser(username string) int {
	key := normalizeUser(username)
	if q == nil || key == "" {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.pending[:0]
	dropped := 0
	for _, item := range q.pending {
		if normalizeUser(item.Request.Username) == key {
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	q.pending = kept
	return dropped
}

func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) Ignore(username string) {
	key := normalizeUser(username)
	if q == nil || key == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ignored[key] = struct{}{}
}

func (q *Queue) Unignore(username string) bool {
	key := normalizeUser(username)
	if q == nil || key == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.ignored[key]; !ok {
		return false
	}
	delete(q.ignored, key)
	return true
}

func (q *Queue) IsIgnored(username string) bool {
	key := normalizeUser(username)
	if q == nil || key == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.ignored[key]
	return ok
}

func (q *Queue) IgnoredUsers() []string {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.ignored))
	for user := range q.ignored {
		out = append(out, user)
	}
	sort.Strings(out)
	return out
}

func (q *Queue) SetCurrentlyPlaying(item *domain.TTSQueueItem) {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current = item
}

func (q *Queue) CurrentlyPlaying() *domain.TTSQueueItem {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Snapshot devuelve el item en curso (primero) y los pendientes, en una foto
// coherente tomada bajo el mismo lock.
func (q *Queue) Snapshot() []*domain.TTSQueueItem {
	current, pending := q.SnapshotParts()
	out := make([]*domain.TTSQueueItem, 0, len(pending)+1)
	if current != nil {
		out = append(out, current)
	}
	return append(out, pending...)
}

func (q *Queue) SnapshotParts() (*domain.TTSQueueItem, []*domain.TTSQueueItem) {
	if q == nil {
		return nil, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := make([]*domain.TTSQueueItem, len(q.pending))
	copy(pending, q.pending)
	return q.current, pending
}

// RequestSkip marca que el item en curso debe cortarse. El scheduler lo
// consulta entre fragmentos y durante la reproducción.
func (q *Queue) RequestSkip() {
	if q == nil {
		return
	}
	q.skip.Store(true)
}

func (q *Queue) ClearSkip() {
	if q == nil {
		return
	}
	q.skip.Store(false)
}

func (q *Queue) SkipRequested() bool {
	if q == nil {
		return false
	}
	return q.skip.Load()
}

func normalizeUser(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
