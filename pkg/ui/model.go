package ui

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/go-go-golems/supportchat/pkg/chat"
)

// sessionChangedMsg tells the model to re-read the session snapshot.
type sessionChangedMsg struct{}

type copiedMsg struct {
	err error
}

// Model is the bubbletea widget over a chat.Session. The session owns all
// conversation state; the model only mirrors the latest snapshot.
type Model struct {
	ctx     context.Context
	session *chat.Session
	changes chan struct{}

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	markdown bool
	renderer BotRenderer
	copyText func(string) error

	snap   chat.Snapshot
	width  int
	status string
}

type Option func(*Model)

// WithMarkdown renders bot replies as markdown.
func WithMarkdown(enabled bool) Option {
	return func(m *Model) { m.markdown = enabled }
}

// WithClipboard replaces the system clipboard writer used by ctrl+y.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

func NewModel(ctx context.Context, s *chat.Session, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = Placeholder
	ti.PlaceholderStyle = placeholderSt
	ti.Prompt = "> "
	ti.Width = 76
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	vp := viewport.New(80, 16)

	// Size 1: one pending signal is enough since the model reads the
	// whole snapshot when it wakes up.
	changes := make(chan struct{}, 1)
	s.Subscribe(func(chat.Snapshot) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	m := Model{
		ctx:      ctx,
		session:  s,
		changes:  changes,
		input:    ti,
		viewport: vp,
		spinner:  sp,
		copyText: clipboard.WriteAll,
		snap:     s.Snapshot(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.markdown {
		m.renderer = newMarkdownRenderer(vp.Width)
	}
	m.refresh()
	return m
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return sessionChangedMsg{}
	}
}

func runExchange(ex *chat.Exchange) tea.Cmd {
	return func() tea.Msg {
		ex.Run()
		return nil
	}
}

func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForChange(m.changes))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = ev.Width
		m.viewport.Width = ev.Width
		// header, typing line, input, status
		if h := ev.Height - 4; h > 0 {
			m.viewport.Height = h
		}
		if ev.Width > 4 {
			m.input.Width = ev.Width - 4
		}
		if m.markdown {
			m.renderer = newMarkdownRenderer(ev.Width)
		}
		m.refresh()
		return m, nil

	case sessionChangedMsg:
		m.snap = m.session.Snapshot()
		m.refresh()
		return m, waitForChange(m.changes)

	case copiedMsg:
		if ev.err != nil {
			m.status = "Copy failed: " + ev.err.Error()
		} else {
			m.status = "Copied last reply."
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(ev)
		return m, cmd

	case tea.KeyMsg:
		switch ev.String() {
		case "ctrl+c", "esc":
			m.session.Close()
			return m, tea.Quit
		case "enter":
			m.session.SetDraft(m.input.Value())
			ex, ok := m.session.Submit(m.ctx)
			if !ok {
				return m, nil
			}
			m.input.Reset()
			m.status = ""
			m.snap = m.session.Snapshot()
			m.refresh()
			return m, runExchange(ex)
		case "ctrl+y":
			last, ok := m.snap.LastBotMessage()
			if !ok {
				m.status = "Nothing to copy yet."
				return m, nil
			}
			return m, copyCmd(m.copyText, last.Text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(ev)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(ev)
		m.session.SetDraft(m.input.Value())
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.snap.Messages, m.width, m.renderer))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	typing := ""
	if m.snap.Pending {
		typing = m.spinner.View() + " " + typingStyle.Render(TypingText)
	}
	view := headerStyle.Render(Title) + "\n" + m.viewport.View() + "\n" + typing + "\n" + m.input.View()
	if m.status != "" {
		view += "\n" + statusStyle.Render(m.status)
	}
	return view
}

// Run shows the widget on the terminal until the user quits, then closes
// the session.
func Run(ctx context.Context, s *chat.Session, opts ...Option) error {
	defer s.Close()
	p := tea.NewProgram(NewModel(ctx, s, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "run chat widget")
	}
	return nil
}
