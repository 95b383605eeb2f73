// Package menu maps operator selections to handlers.
package menu

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidChoice = errors.New("invalid choice")

type Handler func(ctx context.Context, s *Session) error

type Command struct {
	Key   string
	Label string
	Run   Handler
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as ending the session.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

func IsFatal(err error) bool {
	var fatalErr *fatalError
	return errors.As(err, &fatalErr)
}

type Menu struct {
	title    string
	commands []Command
	table    map[string]Command
}

func New(title string, commands []Command) *Menu {
	table := make(map[string]Command, len(commands))
	for _, command := range commands {
		table[command.Key] = command
	}

	return &Menu{
		title:    title,
		commands: commands,
		table:    table,
	}
}

func (m *Menu) Dispatch(ctx context.Context, s *Session, key string) error {
	command, ok := m.table[strings.TrimSpace(key)]
	if !ok {
		return ErrInvalidChoice
	}
	return command.Run(ctx, s)
}

func (m *Menu) print(s *Session) {
	s.Printer.Println(m.title)
	for _, command := range m.commands {
		s.Printer.Printf("%s. %s\n", command.Key, command.Label)
	}
}

// askContinue keeps asking until the answer is yes or no.
func askContinue(ctx context.Context, s *Session) (bool, error) {
	for {
		answer, err := s.Prompt(ctx, "Do you want to continue? (y/n): ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// Run shows the menu until the operator declines to continue or input ends.
// Only fatal errors and cancellation are returned; anything else is printed
// and the menu comes back.
func (m *Menu) Run(ctx context.Context, s *Session) error {
	for {
		m.print(s)

		choice, err := s.Prompt(ctx, "Enter your choice: ")
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		err = m.Dispatch(ctx, s, choice)
		switch {
		case err == nil:
		case IsFatal(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, ErrInvalidChoice):
			s.Printer.Println("Invalid choice")
		default:
			s.Printer.Printf("Error: %v\n", err)
		}

		more, err := askContinue(ctx, s)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !more {
			s.Printer.Println("Goodbye.")
			return nil
		}
	}
}
