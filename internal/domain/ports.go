package domain

import "context"

type OutgoingMessagePort interface {
	SendMessage(ctx context.Context, platform Platform, channelID, text string) error
	// ReplyMessage responde a un mensaje concreto; replyToID es el ID del
	// mensaje original en la plataforma.
	ReplyMessage(ctx context.Context, platform Platform, channelID, replyToID, text string) error
}
