package chat

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/orderdesk/pkg/models"
	"go.uber.org/zap"
)

const (
	WelcomeMessage  = "Welcome to our restaurant! How can I help you today?"
	FailureResponse = "Sorry, I'm having trouble connecting to the server."
)

// Messages
type sendMessage struct {
	ctx  context.Context
	text string
}

type sendResult struct {
	reply string
	err   error
}

type appendTurn struct {
	turn models.ChatTurn
}

type appended struct{}

type transcriptRequest struct{}

type transcript struct {
	turns []models.ChatTurn
}

// sessionActor owns the turns of one chat session. Its mailbox handles one
// message at a time, so turns land in the order sends were accepted.
type sessionActor struct {
	id      string
	backend Backend
	timeout time.Duration
	logger  *zap.Logger

	turns []models.ChatTurn
}

func (a *sessionActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.turns = []models.ChatTurn{{Sender: models.SenderAssistant, Text: WelcomeMessage}}
		a.logger.Debug("Chat session started")

	case *sendMessage:
		ctx.Respond(a.send(msg))

	case *appendTurn:
		a.turns = append(a.turns, msg.turn)
		ctx.Respond(&appended{})

	case *transcriptRequest:
		ctx.Respond(&transcript{turns: append([]models.ChatTurn(nil), a.turns...)})

	case *actor.Stopped:
		a.logger.Debug("Chat session stopped", zap.Int("turns", len(a.turns)))
	}
}

func (a *sessionActor) send(msg *sendMessage) *sendResult {
	a.turns = append(a.turns, models.ChatTurn{Sender: models.SenderCustomer, Text: msg.text})

	callCtx, cancel := context.WithTimeout(msg.ctx, a.timeout)
	defer cancel()

	reply, err := a.backend.SendChat(callCtx, a.id, msg.text)
	if err != nil {
		a.turns = append(a.turns, models.ChatTurn{Sender: models.SenderAssistant, Text: FailureResponse})
		a.logger.Warn("Chat backend failed", zap.Error(err))

		if !models.IsServiceError(err) {
			err = &models.ServiceError{Op: "send chat message", Err: err}
		}
		return &sendResult{err: err}
	}

	a.turns = append(a.turns, models.ChatTurn{Sender: models.SenderAssistant, Text: reply})
	return &sendResult{reply: reply}
}
