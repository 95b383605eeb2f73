package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

type line struct {
	text string
	err  error
}

// Session is the console an operator talks to. Input is read one line per
// Prompt so nothing else sharing the terminal loses keystrokes.
type Session struct {
	Printer *log.Logger

	in       io.Reader
	out      io.Writer
	once     sync.Once
	requests chan struct{}
	replies  chan line
}

func NewSession(in io.Reader, out io.Writer) *Session {
	return &Session{
		Printer:  log.New(out, "", 0),
		in:       in,
		out:      out,
		requests: make(chan struct{}),
		replies:  make(chan line, 1),
	}
}

func (s *Session) serve() {
	scanner := bufio.NewScanner(s.in)
	for range s.requests {
		if scanner.Scan() {
			s.replies <- line{text: scanner.Text()}
			continue
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		s.replies <- line{err: err}
	}
}

// Prompt prints question and waits for one line of input. It returns io.EOF
// when input is exhausted and ctx.Err() when ctx is cancelled first.
func (s *Session) Prompt(ctx context.Context, question string) (string, error) {
	s.once.Do(func() { go s.serve() })

	fmt.Fprint(s.out, question)

	select {
	case s.requests <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case reply := <-s.replies:
		if reply.err != nil {
			return "", reply.err
		}
		return strings.TrimSpace(reply.text), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
