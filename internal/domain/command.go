package domain

import (
	"context"
	"time"
)

// ActionKind distingue cómo se despacha la respuesta de un comando.
type ActionKind string

const (
	ActionSend  ActionKind = "send"
	ActionReply ActionKind = "reply"
)

// CommandAction es la variante etiquetada que decide el despacho de la
// respuesta: mensaje normal al canal o respuesta al mensaje que disparó
// el comando.
type CommandAction struct {
	Kind ActionKind
	Text string
}

type CommandDefinition struct {
	Trigger     string
	Action      CommandAction
	Permissions RolePermissions
	Cooldown    time.Duration
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CommandRepository interface {
	UpsertCommand(ctx context.Context, def *CommandDefinition) error
	ListCommands(ctx context.Context) ([]*CommandDefinition, error)
	DeleteCommand(ctx context.Context, trigger string) error
}
