package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/supportchat/pkg/chat"
)

const (
	Title       = "Smart Customer Support Chatbot"
	TypingText  = "Bot is typing..."
	Placeholder = "Type your message..."
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	userLabel     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	botLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	typingStyle   = lipgloss.NewStyle().Faint(true).Italic(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	placeholderSt = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// BotRenderer turns bot text into terminal output. *glamour.TermRenderer
// satisfies it.
type BotRenderer interface {
	Render(in string) (string, error)
}

func newMarkdownRenderer(width int) BotRenderer {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Warn().Err(err).Msg("markdown renderer unavailable, falling back to plain text")
		return nil
	}
	return r
}

func renderMessage(m chat.Message, width int, md BotRenderer) string {
	switch m.Role {
	case chat.RoleUser:
		line := userLabel.Render("You:") + " " + userStyle.Render(m.Text)
		if width <= 0 {
			return line
		}
		return lipgloss.NewStyle().Width(width).Align(lipgloss.Right).Render(line)
	default:
		if m.Text == chat.UnreachableReply {
			return botLabel.Render("Bot:") + " " + errorStyle.Render(m.Text)
		}
		if md != nil {
			out, err := md.Render(m.Text)
			if err == nil {
				return botLabel.Render("Bot:") + "\n" + strings.Trim(out, "\n")
			}
			log.Debug().Err(err).Msg("markdown render failed")
		}
		return botLabel.Render("Bot:") + " " + m.Text
	}
}

func renderTranscript(msgs []chat.Message, width int, md BotRenderer) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, renderMessage(m, width, md))
	}
	return strings.Join(lines, "\n")
}

// plainLine is the unstyled form used in line mode.
func plainLine(m chat.Message) string {
	if m.Role == chat.RoleUser {
		return "You: " + m.Text
	}
	return "Bot: " + m.Text
}
