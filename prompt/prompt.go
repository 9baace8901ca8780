// Package prompt asks the user for free text, a choice from a list, or a
// yes/no confirmation. Terminal drives a bubbletea program; Scripted replays
// queued answers for tests and --yes runs.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCancelled is returned when the user aborts a prompt (ctrl+c, esc).
	ErrCancelled = errors.New("cancelled")
	// ErrNoAnswer is returned by Scripted when its queue runs dry.
	ErrNoAnswer = errors.New("no scripted answer")
)

// Prompter supplies answers the runner turns into definitions.
type Prompter interface {
	// Ask returns free text, or def when the answer is blank.
	Ask(label, def string) (string, error)
	// Select returns one of options.
	Select(label string, options []string) (string, error)
	// Confirm returns a yes/no answer, def when the answer is blank.
	Confirm(label string, def bool) (bool, error)
}

// Scripted answers prompts from a queue. With AssumeYes set, every
// confirmation is accepted without consuming an answer.
type Scripted struct {
	Answers   []string
	AssumeYes bool

	// Asked records every label in prompt order.
	Asked []string
}

// NewScripted returns a prompter that replays answers in order.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{Answers: answers}
}

func (s *Scripted) next(label string) (string, error) {
	s.Asked = append(s.Asked, label)
	if len(s.Answers) == 0 {
		return "", fmt.Errorf("%w for %q", ErrNoAnswer, label)
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, nil
}

func (s *Scripted) Ask(label, def string) (string, error) {
	a, err := s.next(label)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(a) == "" {
		return def, nil
	}
	return strings.TrimSpace(a), nil
}

func (s *Scripted) Select(label string, options []string) (string, error) {
	a, err := s.next(label)
	if err != nil {
		return "", err
	}
	for _, opt := range options {
		if strings.EqualFold(opt, a) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("%q is not one of %s", a, strings.Join(options, ", "))
}

func (s *Scripted) Confirm(label string, def bool) (bool, error) {
	if s.AssumeYes {
		s.Asked = append(s.Asked, label)
		return true, nil
	}
	a, err := s.next(label)
	if err != nil {
		return false, err
	}
	return ParseYesNo(a, def)
}

// ParseYesNo reads y/yes/n/no in any case; blank means def.
func ParseYesNo(answer string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected yes or no, got %q", answer)
}
