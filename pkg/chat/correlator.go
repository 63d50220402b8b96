package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/orderdesk/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend is the remote chat endpoint. sessionID is passed with every
// message so the backend can keep conversational context.
type Backend interface {
	SendChat(ctx context.Context, sessionID, text string) (string, error)
}

type Option func(*Correlator)

// WithIDFactory replaces the session id generator.
func WithIDFactory(f func() string) Option {
	return func(c *Correlator) { c.newID = f }
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(c *Correlator) { c.timeout = d }
}

// Correlator threads chat turns through one actor per session.
type Correlator struct {
	system  *actor.ActorSystem
	backend Backend
	logger  *zap.Logger
	newID   func() string
	timeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*actor.PID
}

func NewCorrelator(system *actor.ActorSystem, backend Backend, logger *zap.Logger, opts ...Option) *Correlator {
	c := &Correlator{
		system:   system,
		backend:  backend,
		logger:   logger.Named("chat"),
		newID:    uuid.NewString,
		timeout:  15 * time.Second,
		sessions: make(map[string]*actor.PID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession spawns a session actor and returns its id.
func (c *Correlator) CreateSession() (string, error) {
	id := c.newID()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &sessionActor{
			id:      id,
			backend: c.backend,
			timeout: c.timeout,
			logger:  c.logger.With(zap.String("session_id", id)),
		}
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.sessions[id]; exists {
		return "", fmt.Errorf("chat session %q already exists", id)
	}
	pid, err := c.system.Root.SpawnNamed(props, "chat-"+id)
	if err != nil {
		return "", fmt.Errorf("failed to spawn chat session: %w", err)
	}
	c.sessions[id] = pid

	c.logger.Info("Chat session created", zap.String("session_id", id))
	return id, nil
}

// Send appends the customer turn, calls the backend and appends its reply.
// On backend failure the fallback assistant turn is appended and the
// ServiceError returned. Sends on one session are serialized.
func (c *Correlator) Send(ctx context.Context, sessionID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &models.ValidationError{Field: "message", Reason: "must not be empty"}
	}
	pid, err := c.lookup(sessionID)
	if err != nil {
		return "", err
	}

	res, err := c.request(ctx, pid, &sendMessage{ctx: ctx, text: text})
	if err != nil {
		return "", &models.ServiceError{Op: "send chat message", Err: err}
	}
	r, ok := res.(*sendResult)
	if !ok {
		return "", fmt.Errorf("unexpected chat response %T", res)
	}
	return r.reply, r.err
}

// AppendTurn records a turn without calling the backend.
func (c *Correlator) AppendTurn(sessionID string, turn models.ChatTurn) error {
	pid, err := c.lookup(sessionID)
	if err != nil {
		return err
	}
	_, err = c.request(context.Background(), pid, &appendTurn{turn: turn})
	return err
}

func (c *Correlator) Transcript(sessionID string) ([]models.ChatTurn, error) {
	pid, err := c.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	res, err := c.request(context.Background(), pid, &transcriptRequest{})
	if err != nil {
		return nil, err
	}
	t, ok := res.(*transcript)
	if !ok {
		return nil, fmt.Errorf("unexpected transcript response %T", res)
	}
	return t.turns, nil
}

// CloseSession stops the session actor and forgets the id.
func (c *Correlator) CloseSession(sessionID string) error {
	c.mu.Lock()
	pid, ok := c.sessions[sessionID]
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	if !ok {
		return models.ErrSessionNotFound
	}
	if err := c.system.Root.StopFuture(pid).Wait(); err != nil {
		return fmt.Errorf("failed to stop chat session: %w", err)
	}
	return nil
}

// Close stops every session.
func (c *Correlator) Close() {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[string]*actor.PID)
	c.mu.Unlock()

	for id, pid := range sessions {
		if err := c.system.Root.StopFuture(pid).Wait(); err != nil {
			c.logger.Warn("Failed to stop chat session", zap.String("session_id", id), zap.Error(err))
		}
	}
}

func (c *Correlator) lookup(sessionID string) (*actor.PID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pid, ok := c.sessions[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return pid, nil
}

// request waits for the actor's answer. Messages queued behind slow sends
// wait their turn, so the wait is bounded by ctx when it has a deadline and
// by a multiple of the backend timeout otherwise.
func (c *Correlator) request(ctx context.Context, pid *actor.PID, msg any) (any, error) {
	wait := 4 * c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
		if wait <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	return c.system.Root.RequestFuture(pid, msg, wait).Result()
}
