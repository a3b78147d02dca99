package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"ninety-nine-go/internal/game"
)

var playedAt = time.Date(2024, 7, 12, 21, 15, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestMailer(sender Sender) *Mailer {
	return NewMailer(sender, "scores@example.com", "player@example.com", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func playedGame(t *testing.T, breakBonus, ballCount, frames int) *game.Game {
	t.Helper()
	g := game.NewGame(uuid.New(), uuid.New(), game.TableSizeNineFoot, playedAt)
	require.NoError(t, g.InitializeFrames())
	for i := 0; i < frames; i++ {
		_, err := g.CompleteCurrentFrame(breakBonus, ballCount, nil, playedAt)
		require.NoError(t, err)
	}
	if !g.IsCompleted() {
		require.NoError(t, g.Complete())
	}
	return g
}

func TestSendSummary(t *testing.T) {
	sender := &fakeSender{}
	m := newTestMailer(sender)

	require.NoError(t, m.SendSummary(context.Background(), playedGame(t, 1, 10, 9)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"Perfect game! 99 of 99"}, sender.sent[0].GetGenHeader(mail.HeaderSubject))

	sender.err = errors.New("connection refused")
	err := m.SendSummary(context.Background(), playedGame(t, 0, 4, 9))
	assert.ErrorContains(t, err, "connection refused")
}

func TestSummaryBody(t *testing.T) {
	m := newTestMailer(&fakeSender{})
	g := playedGame(t, 1, 7, 2)

	assert.Equal(t, "Game completed: 16 of 99", m.subject(g))

	body := m.body(g)
	assert.Contains(t, body, "Played Friday, July 12 2024 at 21:15 on a 9ft table")
	assert.Contains(t, body, "Frame 1: 1 + 7 = 8 (total 8)")
	assert.Contains(t, body, "Frame 2: 1 + 7 = 8 (total 16)")
	assert.Contains(t, body, "Frame 3: not played")
	assert.Contains(t, body, "Average per frame: 8.0")
	assert.Contains(t, body, "Perfect frames: 0")
}

func TestBuildMessageRejectsBadAddress(t *testing.T) {
	m := NewMailer(&fakeSender{}, "not an address", "player@example.com", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := m.buildMessage(playedGame(t, 0, 5, 9))
	assert.ErrorContains(t, err, "invalid sender address")
}

func TestRunSendsCompletedGamesOnly(t *testing.T) {
	sender := &fakeSender{}
	m := newTestMailer(sender)
	events := make(chan game.Event, 3)

	completed := playedGame(t, 1, 9, 9)
	events <- game.Event{Type: game.EventTypeFrameCompleted, Game: completed}
	events <- game.Event{Type: game.EventTypeGameCompleted, Game: completed}
	events <- game.Event{Type: game.EventTypeGameCompleted}
	close(events)

	m.Run(context.Background(), events)
	assert.Equal(t, 1, sender.count())
}
