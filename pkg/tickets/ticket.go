package tickets

import (
	"context"
	"strings"
	"time"
)

// IntentSeparator joins an intent and its sub-intent, e.g.
// "Product inquiry → Warranty".
const IntentSeparator = " → "

// Ticket is a support request filed once all slots of an intent are known.
type Ticket struct {
	ID        string            `json:"id" yaml:"id"`
	Intent    string            `json:"intent" yaml:"intent"`
	Slots     map[string]string `json:"slots" yaml:"slots"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
}

// BaseIntent strips a sub-intent suffix.
func (t Ticket) BaseIntent() string {
	return BaseIntent(t.Intent)
}

func BaseIntent(intent string) string {
	if i := strings.Index(intent, IntentSeparator); i >= 0 {
		return intent[:i]
	}
	return intent
}

// Store persists filed tickets.
//
// List returns tickets in filing order. An empty intent matches every ticket;
// otherwise it matches on the base intent. A limit <= 0 means no limit.
type Store interface {
	Append(ctx context.Context, t Ticket) error
	List(ctx context.Context, intent string, limit int) ([]Ticket, error)
	Close() error
}
