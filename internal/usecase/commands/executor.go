package commands

import (
	"time"

	"yamBot/internal/domain"
)

type ExecutionStatus string

const (
	StatusNotFound         ExecutionStatus = "not_found"
	StatusPermissionDenied ExecutionStatus = "permission_denied"
	StatusOnCooldown       ExecutionStatus = "on_cooldown"
	StatusSuccess          ExecutionStatus = "success"
)

// ExecutionContext lleva todo lo que hace falta para decidir un disparo:
// el trigger ya extraído del mensaje, el mensaje (con sus flags de rol) y
// el instante del disparo.
type ExecutionContext struct {
	Trigger string
	Sender  domain.Message
	At      time.Time
}

type ExecutionResult struct {
	Status    ExecutionStatus
	Action    domain.CommandAction
	Remaining time.Duration
}

// Executor decide el resultado de un trigger contra el registro. No hace
// ninguna E/S: devuelve la acción y quien llama la despacha contra el
// transporte de chat.
type Executor struct {
	registry *Registry
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

func (e *Executor) Execute(ec ExecutionContext) ExecutionResult {
	if e == nil || e.registry == nil {
		return ExecutionResult{Status: StatusNotFound}
	}
	if ec.At.IsZero() {
		ec.At = time.Now()
	}
	return e.registry.execute(ec)
}
