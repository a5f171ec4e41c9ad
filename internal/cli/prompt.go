package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// ErrPromptCancelled is returned when the user interrupts a prompt.
var ErrPromptCancelled = errors.New("prompt cancelled")

// Prompter reads interactive input.
type Prompter interface {
	// Line reads one line of visible input.
	Line(prompt string) (string, error)
	// Secret reads one line without echo.
	Secret(prompt string) (string, error)
	Close() error
}

// ReadlinePrompter prompts on a terminal.
type ReadlinePrompter struct {
	rl *readline.Instance
}

// NewReadlinePrompter creates a prompter over stdin/stdout.
func NewReadlinePrompter(stdin io.ReadCloser, stdout io.Writer) (*ReadlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           stdin,
		Stdout:          stdout,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	return &ReadlinePrompter{rl: rl}, nil
}

// Line reads one line of visible input.
func (p *ReadlinePrompter) Line(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if err != nil {
		return "", promptError(err)
	}
	return strings.TrimSpace(line), nil
}

// Secret reads a password or code without echo.
func (p *ReadlinePrompter) Secret(prompt string) (string, error) {
	b, err := p.rl.ReadPassword(prompt)
	if err != nil {
		return "", promptError(err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Close releases the terminal.
func (p *ReadlinePrompter) Close() error {
	return p.rl.Close()
}

func promptError(err error) error {
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return ErrPromptCancelled
	}
	return fmt.Errorf("readline error: %w", err)
}
