package supportbot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/supportchat/pkg/chat"
	"github.com/go-go-golems/supportchat/pkg/tickets"
)

// TicketSink receives tickets once every slot of an intent is filled.
type TicketSink interface {
	FileTicket(ctx context.Context, t tickets.Ticket) error
}

type TicketSinkFunc func(ctx context.Context, t tickets.Ticket) error

func (f TicketSinkFunc) FileTicket(ctx context.Context, t tickets.Ticket) error {
	return f(ctx, t)
}

// dialog is the ticket being collected.
type dialog struct {
	intent string
	slots  map[string]string
}

// Bot is a rule-based customer support bot. It holds a single dialog: one
// ticket is collected at a time, whoever is talking.
type Bot struct {
	classifier Classifier
	threshold  float64
	sink       TicketSink
	now        func() time.Time

	mu      sync.Mutex
	history []chat.Message
	active  *dialog
}

type Option func(*Bot)

func WithClassifier(c Classifier) Option {
	return func(b *Bot) {
		if c != nil {
			b.classifier = c
		}
	}
}

// WithThreshold sets the confidence below which keyword fallback is used.
func WithThreshold(t float64) Option {
	return func(b *Bot) { b.threshold = t }
}

func WithTicketSink(s TicketSink) Option {
	return func(b *Bot) { b.sink = s }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		if now != nil {
			b.now = now
		}
	}
}

func New(opts ...Option) *Bot {
	b := &Bot{
		classifier: NewKeywordClassifier(),
		threshold:  defaultThreshold,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleUser answers one user message and returns the reply text.
func (b *Bot) HandleUser(ctx context.Context, text string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, chat.UserMessage(text))

	if isGreeting(text) {
		return b.say(greetingReply)
	}

	if b.active == nil {
		intent, ok := b.detectIntent(text)
		if !ok {
			// The escalation notice goes to the transcript; the caller only
			// sees the short status.
			b.history = append(b.history, chat.BotMessage(escalationMessage))
			log.Info().Str("text", text).Msg("supportbot: escalating unrecognized request")
			return escalatedReply
		}
		b.active = &dialog{intent: intent, slots: map[string]string{}}
		log.Debug().Str("intent", intent).Msg("supportbot: dialog started")
	}

	d := b.active
	for k, v := range ExtractSlots(d.intent, text) {
		d.slots[k] = v
	}

	for _, slot := range RequiredSlots(d.intent) {
		if _, ok := d.slots[slot]; !ok {
			return b.say(fmt.Sprintf(missingSlotTemplate, slot))
		}
	}

	reply := fmt.Sprintf("Your request for '%s' has been submitted with info: %s", d.intent, formatSlots(d.intent, d.slots))
	b.active = nil
	b.file(ctx, tickets.Ticket{
		ID:        uuid.NewString(),
		Intent:    d.intent,
		Slots:     d.slots,
		CreatedAt: b.now(),
	})
	return b.say(reply)
}

func (b *Bot) detectIntent(text string) (string, bool) {
	c := b.classifier.Classify(text)
	if c.Intent != "" && c.Confidence >= b.threshold {
		return c.Intent, true
	}
	return fallbackIntent(text)
}

func (b *Bot) file(ctx context.Context, t tickets.Ticket) {
	if b.sink == nil {
		return
	}
	if err := b.sink.FileTicket(ctx, t); err != nil {
		log.Warn().Err(err).Str("ticket_id", t.ID).Str("intent", t.Intent).Msg("supportbot: filing ticket failed")
		return
	}
	log.Info().Str("ticket_id", t.ID).Str("intent", t.Intent).Msg("supportbot: ticket filed")
}

func (b *Bot) say(reply string) string {
	b.history = append(b.history, chat.BotMessage(reply))
	return reply
}

// ActiveIntent reports the intent of the ticket being collected.
func (b *Bot) ActiveIntent() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		return "", false
	}
	return b.active.intent, true
}

// History returns the bot's own transcript.
func (b *Bot) History() []chat.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]chat.Message(nil), b.history...)
}

// Reset drops the transcript and any half-collected ticket.
func (b *Bot) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
	b.active = nil
}
