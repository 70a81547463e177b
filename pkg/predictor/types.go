package predictor

import "github.com/go-go-golems/supportchat/pkg/chat"

// HistoryEntry is one message of the history sent with each request.
type HistoryEntry struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Request is the body of POST /api/predict.
type Request struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
}

// Response is the body the predictor answers with. A missing reply decodes
// to the empty string.
type Response struct {
	Reply string `json:"reply"`
}

func NewRequest(message string, history []chat.Message) Request {
	entries := make([]HistoryEntry, 0, len(history))
	for _, m := range history {
		entries = append(entries, HistoryEntry{Role: string(m.Role), Message: m.Text})
	}
	return Request{Message: message, History: entries}
}
