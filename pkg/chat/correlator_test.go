package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/orderdesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type echoBackend struct {
	mu       sync.Mutex
	sessions []string
	err      error
}

func (b *echoBackend) SendChat(_ context.Context, sessionID, text string) (string, error) {
	b.mu.Lock()
	b.sessions = append(b.sessions, sessionID)
	err := b.err
	b.mu.Unlock()

	if err != nil {
		return "", err
	}
	// give concurrent senders a chance to interleave if they could
	time.Sleep(time.Millisecond)
	return "echo: " + text, nil
}

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("session-%d", n)
	}
}

func newCorrelator(t *testing.T, backend Backend) *Correlator {
	t.Helper()
	c := NewCorrelator(actor.NewActorSystem(), backend, zaptest.NewLogger(t),
		WithIDFactory(sequentialIDs()),
		WithTimeout(time.Second))
	t.Cleanup(c.Close)
	return c
}

func TestSessionStartsWithWelcome(t *testing.T) {
	c := newCorrelator(t, &echoBackend{})

	id, err := c.CreateSession()
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)

	turns, err := c.Transcript(id)
	require.NoError(t, err)
	assert.Equal(t, []models.ChatTurn{{Sender: models.SenderAssistant, Text: WelcomeMessage}}, turns)
}

func TestSendReusesSessionID(t *testing.T) {
	backend := &echoBackend{}
	c := newCorrelator(t, backend)

	id, err := c.CreateSession()
	require.NoError(t, err)

	reply, err := c.Send(context.Background(), id, "menu please")
	require.NoError(t, err)
	assert.Equal(t, "echo: menu please", reply)

	_, err = c.Send(context.Background(), id, "thanks")
	require.NoError(t, err)

	assert.Equal(t, []string{id, id}, backend.sessions)

	turns, err := c.Transcript(id)
	require.NoError(t, err)
	assert.Equal(t, []models.ChatTurn{
		{Sender: models.SenderAssistant, Text: WelcomeMessage},
		{Sender: models.SenderCustomer, Text: "menu please"},
		{Sender: models.SenderAssistant, Text: "echo: menu please"},
		{Sender: models.SenderCustomer, Text: "thanks"},
		{Sender: models.SenderAssistant, Text: "echo: thanks"},
	}, turns)
}

func TestConcurrentSendsAreSerialized(t *testing.T) {
	c := newCorrelator(t, &echoBackend{})
	id, err := c.CreateSession()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Send(context.Background(), id, fmt.Sprintf("m-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns, err := c.Transcript(id)
	require.NoError(t, err)
	require.Len(t, turns, 41)

	for i := 1; i < len(turns); i += 2 {
		require.Equal(t, models.SenderCustomer, turns[i].Sender)
		require.Equal(t, models.ChatTurn{Sender: models.SenderAssistant, Text: "echo: " + turns[i].Text}, turns[i+1],
			"reply must directly follow its message")
	}
}

func TestSendFailureAppendsFallback(t *testing.T) {
	backend := &echoBackend{err: &models.ServiceError{Op: "send chat message", StatusCode: 500, Message: "boom"}}
	c := newCorrelator(t, backend)
	id, err := c.CreateSession()
	require.NoError(t, err)

	_, err = c.Send(context.Background(), id, "hello")
	var se *models.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.StatusCode)

	turns, err := c.Transcript(id)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, models.ChatTurn{Sender: models.SenderAssistant, Text: FailureResponse}, turns[2])
}

func TestSendWrapsTransportErrors(t *testing.T) {
	c := newCorrelator(t, &echoBackend{err: errors.New("dial tcp: refused")})
	id, err := c.CreateSession()
	require.NoError(t, err)

	_, err = c.Send(context.Background(), id, "hello")
	assert.True(t, models.IsServiceError(err))
}

func TestSendValidation(t *testing.T) {
	backend := &echoBackend{}
	c := newCorrelator(t, backend)
	id, err := c.CreateSession()
	require.NoError(t, err)

	_, err = c.Send(context.Background(), id, "   ")
	assert.True(t, models.IsValidationError(err))

	_, err = c.Send(context.Background(), "nope", "hi")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	assert.Empty(t, backend.sessions)
}

func TestAppendTurnKeepsOrder(t *testing.T) {
	c := newCorrelator(t, &echoBackend{})
	id, err := c.CreateSession()
	require.NoError(t, err)

	require.NoError(t, c.AppendTurn(id, models.ChatTurn{Sender: models.SenderCustomer, Text: "a"}))
	require.NoError(t, c.AppendTurn(id, models.ChatTurn{Sender: models.SenderAssistant, Text: "b"}))

	turns, err := c.Transcript(id)
	require.NoError(t, err)
	assert.Equal(t, "a", turns[1].Text)
	assert.Equal(t, "b", turns[2].Text)
}

func TestCloseSession(t *testing.T) {
	c := newCorrelator(t, &echoBackend{})
	first, err := c.CreateSession()
	require.NoError(t, err)
	second, err := c.CreateSession()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	require.NoError(t, c.CloseSession(first))
	assert.ErrorIs(t, c.CloseSession(first), models.ErrSessionNotFound)

	_, err = c.Transcript(first)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	_, err = c.Transcript(second)
	assert.NoError(t, err)
}

func TestDuplicateSessionID(t *testing.T) {
	c := NewCorrelator(actor.NewActorSystem(), &echoBackend{}, zaptest.NewLogger(t),
		WithIDFactory(func() string { return "fixed" }))
	defer c.Close()

	_, err := c.CreateSession()
	require.NoError(t, err)
	_, err = c.CreateSession()
	assert.Error(t, err)
}
