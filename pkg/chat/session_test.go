package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type predictCall struct {
	message string
	history []Message
}

type fakePredictor struct {
	mu    sync.Mutex
	calls []predictCall
	reply string
	err   error
	// gate, when set, blocks Predict until it is closed or ctx is done.
	gate chan struct{}
}

func (f *fakePredictor) Predict(ctx context.Context, message string, history []Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, predictCall{message: message, history: history})
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakePredictor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSession_SubmitIgnoresBlankDraft(t *testing.T) {
	for _, draft := range []string{"", " ", "\t\n", "   \r\n  "} {
		p := &fakePredictor{reply: "unused"}
		s := NewSession(p)
		s.SetDraft(draft)

		ex, ok := s.Submit(context.Background())
		require.False(t, ok)
		require.Nil(t, ex)
		require.Empty(t, s.Messages())
		require.False(t, s.Pending())
		require.Equal(t, draft, s.Draft())
		require.Equal(t, 0, p.callCount())
	}
}

func TestSession_SubmitAppendsUserMessageBeforeReply(t *testing.T) {
	p := &fakePredictor{reply: "Hello!"}
	s := NewSession(p)
	s.SetDraft("hi there")

	ex, ok := s.Submit(context.Background())
	require.True(t, ok)
	require.Equal(t, []Message{UserMessage("hi there")}, s.Messages())
	require.True(t, s.Pending())
	require.Equal(t, "", s.Draft())
	require.Equal(t, 0, p.callCount())

	require.Equal(t, "hi there", ex.Message)
	require.Equal(t, []Message{UserMessage("hi there")}, ex.History)
}

func TestSession_SuccessfulReply(t *testing.T) {
	p := &fakePredictor{reply: "Hello!"}
	s := NewSession(p)
	s.SetDraft("hi")

	ex, ok := s.Submit(context.Background())
	require.True(t, ok)
	ex.Run()

	require.Equal(t, []Message{UserMessage("hi"), BotMessage("Hello!")}, s.Messages())
	require.False(t, s.Pending())
	require.Equal(t, 1, p.callCount())
}

func TestSession_FailureBecomesBotMessage(t *testing.T) {
	p := &fakePredictor{err: errors.New("connection refused")}
	s := NewSession(p)
	s.SetDraft("hi")

	ex, ok := s.Submit(context.Background())
	require.True(t, ok)
	ex.Run()

	require.Equal(t, []Message{UserMessage("hi"), BotMessage(UnreachableReply)}, s.Messages())
	require.False(t, s.Pending())
}

func TestSession_HistoryIncludesEarlierTurns(t *testing.T) {
	p := &fakePredictor{reply: "ok"}
	s := NewSession(p)

	s.SetDraft("first")
	ex, ok := s.Submit(context.Background())
	require.True(t, ok)
	ex.Run()

	s.SetDraft("second")
	ex, ok = s.Submit(context.Background())
	require.True(t, ok)
	ex.Run()

	require.Len(t, p.calls, 2)
	require.Equal(t, "second", p.calls[1].message)
	require.Equal(t, []Message{
		UserMessage("first"),
		BotMessage("ok"),
		UserMessage("second"),
	}, p.calls[1].history)
}

func TestSession_SubmitWhilePendingIsNoop(t *testing.T) {
	p := &fakePredictor{reply: "late", gate: make(chan struct{})}
	s := NewSession(p)
	s.SetDraft("one")
	ex, ok := s.Submit(context.Background())
	require.True(t, ok)

	s.SetDraft("two")
	again, ok := s.Submit(context.Background())
	require.False(t, ok)
	require.Nil(t, again)
	require.Equal(t, "two", s.Draft())
	require.Len(t, s.Messages(), 1)

	close(p.gate)
	ex.Run()
	require.False(t, s.Pending())
	require.Equal(t, []Message{UserMessage("one"), BotMessage("late")}, s.Messages())
}

func TestSession_DraftIsSentVerbatim(t *testing.T) {
	p := &fakePredictor{reply: "ok"}
	s := NewSession(p)
	s.SetDraft("  padded  ")

	ex, ok := s.Submit(context.Background())
	require.True(t, ok)
	require.Equal(t, "  padded  ", ex.Message)
}

func TestSession_SendRunsInBackground(t *testing.T) {
	p := &fakePredictor{reply: "bg", gate: make(chan struct{})}
	s := NewSession(p)

	done := make(chan Snapshot, 8)
	s.Subscribe(func(snap Snapshot) {
		if !snap.Pending && len(snap.Messages) == 2 {
			done <- snap
		}
	})

	s.SetDraft("hello")
	require.True(t, s.Send(context.Background()))
	require.True(t, s.Pending())
	require.Equal(t, "", s.Draft())

	close(p.gate)
	select {
	case snap := <-done:
		require.Equal(t, BotMessage("bg"), snap.Messages[1])
	case <-time.After(2 * time.Second):
		t.Fatal("reply was not delivered")
	}
}

func TestSession_ObserversSeeTransitionsInOrder(t *testing.T) {
	p := &fakePredictor{reply: "pong"}
	s := NewSession(p)

	var seen []Snapshot
	s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	s.SetDraft("ping")
	ex, ok := s.Submit(context.Background())
	require.True(t, ok)
	ex.Run()

	require.Len(t, seen, 3)
	require.Equal(t, "ping", seen[0].Draft)
	require.False(t, seen[0].Pending)
	require.True(t, seen[1].Pending)
	require.Equal(t, "", seen[1].Draft)
	require.Len(t, seen[1].Messages, 1)
	require.False(t, seen[2].Pending)
	require.Len(t, seen[2].Messages, 2)
}

func TestSession_CloseDiscardsLateReply(t *testing.T) {
	p := &fakePredictor{reply: "too late", gate: make(chan struct{})}
	s := NewSession(p)
	s.SetDraft("hi")
	ex, ok := s.Submit(context.Background())
	require.True(t, ok)

	finished := make(chan struct{})
	go func() {
		ex.Run()
		close(finished)
	}()

	s.Close()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("exchange was not cancelled by Close")
	}

	snap := s.Snapshot()
	require.True(t, snap.Closed)
	require.Empty(t, snap.Messages)
	require.False(t, snap.Pending)

	s.SetDraft("after close")
	_, ok = s.Submit(context.Background())
	require.False(t, ok)
	require.Equal(t, "", s.Draft())
}

func TestSnapshot_LastBotMessage(t *testing.T) {
	snap := Snapshot{Messages: []Message{
		UserMessage("a"),
		BotMessage("b"),
		UserMessage("c"),
	}}
	m, ok := snap.LastBotMessage()
	require.True(t, ok)
	require.Equal(t, "b", m.Text)

	_, ok = Snapshot{}.LastBotMessage()
	require.False(t, ok)
}
