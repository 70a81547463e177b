package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/go-go-golems/supportchat/pkg/chat"
)

// RunLines drives the session without a terminal UI: every input line is
// submitted, and the exchange is printed once the bot has answered. Blank
// lines are ignored. The session is closed on return.
func RunLines(ctx context.Context, s *chat.Session, in io.Reader, out io.Writer) error {
	defer s.Close()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		s.SetDraft(scanner.Text())
		ex, ok := s.Submit(ctx)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintln(out, plainLine(chat.UserMessage(ex.Message))); err != nil {
			return errors.Wrap(err, "write transcript")
		}
		ex.Run()
		last, ok := s.Snapshot().LastBotMessage()
		if !ok {
			continue
		}
		if _, err := fmt.Fprintln(out, plainLine(last)); err != nil {
			return errors.Wrap(err, "write transcript")
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read input")
	}
	return nil
}
