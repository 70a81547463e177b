package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Predictor answers a user message given the conversation so far.
type Predictor interface {
	Predict(ctx context.Context, message string, history []Message) (string, error)
}

// Observer is notified with a fresh snapshot after every state transition.
// Observers run in transition order and must not call back into the session.
type Observer func(Snapshot)

type Session struct {
	predictor Predictor

	mu      sync.Mutex
	log     []Message
	draft   string
	pending bool
	closed  bool
	// seq identifies the in-flight exchange; a reply for an older seq is stale.
	seq       uint64
	cancel    context.CancelFunc
	observers []Observer

	// notifyMu keeps observer calls in the same order as transitions.
	notifyMu sync.Mutex
}

func NewSession(p Predictor) *Session {
	return &Session{predictor: p}
}

// Exchange is one request/response round trip started by Submit.
type Exchange struct {
	session *Session
	ctx     context.Context
	seq     uint64

	// Message is the submitted draft, sent verbatim.
	Message string
	// History is the log including the just-appended user message.
	History []Message
}

func (s *Session) Subscribe(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.observers = append(s.observers, o)
}

func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	if s.closed || s.draft == text {
		s.mu.Unlock()
		return
	}
	s.draft = text
	s.notifyAndUnlock()
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.log...)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Submit performs the synchronous half of a submission: it appends the draft
// as a user message, clears the draft and raises the pending flag. It returns
// false without touching any state when the draft is blank, a request is
// already pending, or the session is closed.
func (s *Session) Submit(ctx context.Context) (*Exchange, bool) {
	s.mu.Lock()
	if s.closed || s.pending || strings.TrimSpace(s.draft) == "" {
		s.mu.Unlock()
		return nil, false
	}

	text := s.draft
	s.log = append(s.log, UserMessage(text))
	s.draft = ""
	s.pending = true
	s.seq++

	exCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	ex := &Exchange{
		session: s,
		ctx:     exCtx,
		seq:     s.seq,
		Message: text,
		History: append([]Message(nil), s.log...),
	}
	s.notifyAndUnlock()
	return ex, true
}

// Send submits the current draft and runs the exchange in the background.
func (s *Session) Send(ctx context.Context) bool {
	ex, ok := s.Submit(ctx)
	if !ok {
		return false
	}
	go ex.Run()
	return true
}

// Run calls the predictor and resolves the exchange into the session. It
// blocks until the predictor answers or the session is closed.
func (x *Exchange) Run() {
	reply, err := x.session.predictor.Predict(x.ctx, x.Message, x.History)
	x.session.resolve(x.seq, reply, err)
}

func (s *Session) resolve(seq uint64, reply string, err error) {
	s.mu.Lock()
	if s.closed || seq != s.seq || !s.pending {
		s.mu.Unlock()
		log.Debug().Uint64("seq", seq).Msg("discarding predictor reply for closed or stale exchange")
		return
	}
	if err != nil {
		log.Debug().Err(err).Uint64("seq", seq).Msg("predictor request failed")
		reply = UnreachableReply
	}
	s.log = append(s.log, BotMessage(reply))
	s.pending = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.notifyAndUnlock()
}

// Close tears the session down. The in-flight request, if any, is cancelled
// and its reply discarded. The log and draft are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.log = nil
	s.draft = ""
	s.pending = false
	observers := s.observers
	s.observers = nil
	snap := s.snapshotLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, o := range observers {
		o(snap)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Messages: append([]Message(nil), s.log...),
		Draft:    s.draft,
		Pending:  s.pending,
		Closed:   s.closed,
	}
}

// notifyAndUnlock must be called with s.mu held. It hands off to notifyMu
// before releasing s.mu so observers see transitions in order.
func (s *Session) notifyAndUnlock() {
	snap := s.snapshotLocked()
	observers := append([]Observer(nil), s.observers...)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, o := range observers {
		o(snap)
	}
}
