package permission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// TerminalPrompter asks questions on an interactive terminal.
type TerminalPrompter struct {
	Stdin  io.ReadCloser // nil means os.Stdin
	Stdout io.Writer     // nil means os.Stdout
}

// Confirm implements Prompter. An empty answer is no.
func (p *TerminalPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: question + " [y/N] ",
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
	})
	if err != nil {
		return false, fmt.Errorf("permission: open terminal: %w", err)
	}
	defer rl.Close()

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := rl.Readline()
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil {
			if errors.Is(a.err, readline.ErrInterrupt) || errors.Is(a.err, io.EOF) {
				return false, nil
			}
			return false, a.err
		}
		return parseYes(a.line), nil
	}
}

// Notify implements Prompter.
func (p *TerminalPrompter) Notify(title, message string) {
	w := p.Stdout
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "\n%s\n%s\n", title, message)
}

// ConsentFunc returns a DeviceAuthorizer consent callback asking on p.
func (p *TerminalPrompter) ConsentFunc() func(ctx context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		return p.Confirm(ctx, "Allow this program to use the camera?")
	}
}

func parseYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}
