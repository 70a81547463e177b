package chat

// Role identifies who authored a message in the conversation log.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// UnreachableReply is appended as the bot's message whenever the predictor
// cannot be reached or answers with something unusable.
const UnreachableReply = "Error: Unable to connect to server."

// Message is one entry of the conversation log. Messages are never modified
// after they are appended.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"message"`
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

func BotMessage(text string) Message {
	return Message{Role: RoleBot, Text: text}
}

// Snapshot is a copy of the session's view state at one point in time.
type Snapshot struct {
	Messages []Message
	Draft    string
	Pending  bool
	Closed   bool
}

// LastBotMessage returns the most recent bot message, if any.
func (s Snapshot) LastBotMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleBot {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}
