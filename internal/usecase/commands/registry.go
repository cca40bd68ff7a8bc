package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"yamBot/internal/domain"
)

// Registry guarda las definiciones de comandos indexadas por trigger, junto
// con la marca de último disparo de cada una. Toda mutación pasa por el lock
// de escritura, así la comprobación y actualización del cooldown de un mismo
// trigger es atómica frente a disparos concurrentes; las lecturas de otros
// triggers no se bloquean más de lo imprescindible.
type Registry struct {
	repo domain.CommandRepository

	mu            sync.RWMutex
	commands      map[string]*domain.CommandDefinition
	lastTriggered map[string]time.Time
}

func NewRegistry(ctx context.Context, repo domain.CommandRepository) (*Registry, error) {
	r := &Registry{
		repo:          repo,
		commands:      make(map[string]*domain.CommandDefinition),
		lastTriggered: make(map[string]time.Time),
	}

	if repo == nil {
		return r, nil
	}

	list, err := repo.ListCommands(ctx)
	if err != nil {
		return nil, fmt.Errorf("commands: list: %w", err)
	}

	for _, def := range list {
		if def == nil {
			continue
		}
		trigger := normalizeTrigger(def.Trigger)
		if trigger == "" {
			continue
		}
		def.Trigger = trigger
		r.commands[trigger] = cloneDefinition(def)
	}

	return r, nil
}

// Register inserta o reemplaza la definición por trigger (upsert idempotente).
// Devuelve la definición guardada y si se creó nueva.
func (r *Registry) Register(ctx context.Context, def *domain.CommandDefinition) (*domain.CommandDefinition, bool, error) {
	if r == nil {
		return nil, false, fmt.Errorf("commands: registry nil")
	}
	if def == nil {
		return nil, false, fmt.Errorf("commands: definición nil")
	}

	trigger := normalizeTrigger(def.Trigger)
	if trigger == "" {
		return nil, false, fmt.Errorf("trigger inválido")
	}
	text := strings.TrimSpace(def.Action.Text)
	if text == "" {
		return nil, false, fmt.Errorf("el texto de respuesta es obligatorio")
	}
	kind := def.Action.Kind
	if kind != domain.ActionReply {
		kind = domain.ActionSend
	}
	if def.Cooldown < 0 {
		return nil, false, fmt.Errorf("cooldown negativo")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	existing, ok := r.commands[trigger]
	created := !ok

	stored := &domain.CommandDefinition{
		Trigger:     trigger,
		Action:      domain.CommandAction{Kind: kind, Text: text},
		Permissions: def.Permissions,
		Cooldown:    def.Cooldown,
		Enabled:     def.Enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !created && !existing.CreatedAt.IsZero() {
		stored.CreatedAt = existing.CreatedAt
	}

	if r.repo != nil {
		if err := r.repo.UpsertCommand(ctx, stored); err != nil {
			return nil, false, fmt.Errorf("commands: upsert %q: %w", trigger, err)
		}
	}

	r.commands[trigger] = cloneDefinition(stored)
	return cloneDefinition(stored), created, nil
}

// Unregister quita el comando. No hace nada si no existe.
func (r *Registry) Unregister(ctx context.Context, trigger string) (bool, error) {
	if r == nil {
		return false, fmt.Errorf("commands: registry nil")
	}
	key := normalizeTrigger(trigger)
	if key == "" {
		return false, fmt.Errorf("trigger inválido")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[key]; !ok {
		return false, nil
	}

	if r.repo != nil {
		if err := r.repo.DeleteCommand(ctx, key); err != nil {
			return false, fmt.Errorf("commands: delete %q: %w", key, err)
		}
	}

	delete(r.commands, key)
	delete(r.lastTriggered, key)
	return true, nil
}

// Get devuelve una copia de la definición, o nil si no existe.
func (r *Registry) Get(trigger string) *domain.CommandDefinition {
	if r == nil {
		return nil
	}
	key := normalizeTrigger(trigger)
	if key == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneDefinition(r.commands[key])
}

// List devuelve copias de todas las definiciones, ordenadas por trigger.
func (r *Registry) List() []*domain.CommandDefinition {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.CommandDefinition, 0, len(r.commands))
	for _, def := range r.commands {
		out = append(out, cloneDefinition(def))
	}
	slices.SortFunc(out, func(a, b *domain.CommandDefinition) int {
		return strings.Compare(a.Trigger, b.Trigger)
	})
	return out
}

// Toggle cambia el flag enabled. Devuelve false si el trigger no existe.
func (r *Registry) Toggle(ctx context.Context, trigger string, enabled bool) (bool, error) {
	if r == nil {
		return false, fmt.Errorf("commands: registry nil")
	}
	key := normalizeTrigger(trigger)
	if key == "" {
		return false, fmt.Errorf("trigger inválido")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.commands[key]
	if !ok {
		return false, nil
	}
	if def.Enabled == enabled {
		return true, nil
	}

	// se persiste sobre una copia: si el repo falla, la definición en
	// memoria se queda como estaba
	updated := cloneDefinition(def)
	updated.Enabled = enabled
	updated.UpdatedAt = time.Now()

	if r.repo != nil {
		if err := r.repo.UpsertCommand(ctx, updated); err != nil {
			return true, fmt.Errorf("commands: toggle %q: %w", key, err)
		}
	}

	r.commands[key] = updated
	return true, nil
}

// execute corre la decisión completa de un trigger bajo el lock de escritura
// para que la lectura-modificación del cooldown no pueda cruzarse con otro
// disparo del mismo comando.
func (r *Registry) execute(ec ExecutionContext) ExecutionResult {
	key := normalizeTrigger(ec.Trigger)
	if key == "" {
		return ExecutionResult{Status: StatusNotFound}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.commands[key]
	if !ok || !def.Enabled {
		// un comando desactivado no tapa el fallback a efectos de sonido
		return ExecutionResult{Status: StatusNotFound}
	}

	if !def.Permissions.Allows(ec.Sender) {
		return ExecutionResult{Status: StatusPermissionDenied}
	}

	if def.Cooldown > 0 {
		if last, seen := r.lastTriggered[key]; seen {
			if elapsed := ec.At.Sub(last); elapsed < def.Cooldown {
				return ExecutionResult{
					Status:    StatusOnCooldown,
					Remaining: def.Cooldown - elapsed,
				}
			}
		}
	}

	// la marca de cooldown solo avanza, nunca retrocede
	if prev, seen := r.lastTriggered[key]; !seen || ec.At.After(prev) {
		r.lastTriggered[key] = ec.At
	}

	return ExecutionResult{Status: StatusSuccess, Action: def.Action}
}

func normalizeTrigger(trigger string) string {
	return strings.ToLower(strings.TrimSpace(trigger))
}

func cloneDefinition(def *domain.CommandDefinition) *domain.CommandDefinition {
	if def == nil {
		return nil
	}
	copyDef := *def
	return &copyDef
}
