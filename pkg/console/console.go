// Package console presents scan sessions on an interactive terminal.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/teslashibe/go-barcode/internal/log"
	"github.com/teslashibe/go-barcode/pkg/decode"
	"github.com/teslashibe/go-barcode/pkg/scanner"
)

var (
	// ErrQuit is returned by Execute for the quit command.
	ErrQuit = errors.New("console: quit")

	// ErrNoSession is returned for session commands while no scan is
	// presented.
	ErrNoSession = errors.New("console: no active scan session")
)

// UsageError reports a malformed command line.
type UsageError struct {
	Command string
	Usage   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("console: usage: %s %s", e.Command, e.Usage)
}

type command struct {
	name  string
	args  string
	help  string
	run   func(p *Presenter, args []string) error
	items []readline.PrefixCompleterInterface
}

var commands []command

func init() {
	commands = []command{
		{name: "help", help: "show this help", run: (*Presenter).help},
		{name: "info", help: "show the session state", run: (*Presenter).info},
		{
			name: "torch", args: "on|off", help: "switch the torch", run: (*Presenter).torch,
			items: []readline.PrefixCompleterInterface{readline.PcItem("on"), readline.PcItem("off")},
		},
		{name: "zoom", args: "<factor>", help: "select a zoom factor", run: (*Presenter).zoom},
		{
			name: "trigger", args: "[off]", help: "arm the manual trigger", run: (*Presenter).trigger,
			items: []readline.PrefixCompleterInterface{readline.PcItem("off")},
		},
		{name: "frame", args: "<x> <y> <w> <h>", help: "set the scan frame in screen points", run: (*Presenter).frame},
		{name: "cancel", help: "cancel the scan", run: (*Presenter).cancel},
		{name: "quit", help: "cancel and exit", run: (*Presenter).quit},
	}
}

// Presenter is a scanner.Presenter driven by typed commands.
type Presenter struct {
	out    io.Writer
	logger *slog.Logger

	mu      sync.Mutex
	session *scanner.Session
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithOutput sets where messages are written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Presenter) { p.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Presenter) { p.logger = logger }
}

// New creates a console Presenter.
func New(opts ...Option) *Presenter {
	p := &Presenter{
		out:    os.Stdout,
		logger: log.Component("console"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Present implements scanner.Presenter.
func (p *Presenter) Present(s *scanner.Session) error {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	params := s.Parameters()
	if params.Instructions != "" {
		fmt.Fprintln(p.out, params.Instructions)
	}
	if params.ButtonGated() {
		fmt.Fprintf(p.out, "Type 'trigger' to %s.\n", strings.ToLower(params.ButtonText))
	}
	p.printInfo(s.Info())

	s.Start()
	p.logger.Debug("session presented", "session", s.ID())
	return nil
}

// Dismiss implements scanner.Presenter.
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()
	if s != nil {
		p.logger.Debug("session dismissed", "session", s.ID())
	}
}

// Session returns the presented session, or nil.
func (p *Presenter) Session() *scanner.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Execute runs one command line. Blank lines are ignored.
func (p *Presenter) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(fields[0])
	if name == "exit" {
		name = "quit"
	}
	for _, c := range commands {
		if c.name == name {
			return c.run(p, fields[1:])
		}
	}
	return fmt.Errorf("console: unknown command %q", fields[0])
}

// Run reads commands from stdin until ctx is done, input ends or quit is
// typed. Ctrl-C cancels the presented scan.
func (p *Presenter) Run(ctx context.Context, stdin io.ReadCloser) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "scan> ",
		Stdin:           stdin,
		Stdout:          p.out,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("console: open terminal: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { rl.Close() })
	defer func() {
		if stop() {
			rl.Close()
		}
	}()

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			_ = p.cancel(nil)
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = p.Execute(line)
		switch {
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil:
			fmt.Fprintln(p.out, err)
		}
	}
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c.name, c.items...))
	}
	return readline.NewPrefixCompleter(items...)
}

func (p *Presenter) active() (*scanner.Session, error) {
	if s := p.Session(); s != nil {
		return s, nil
	}
	return nil, ErrNoSession
}

func (p *Presenter) help(_ []string) error {
	for _, c := range commands {
		usage := strings.TrimSpace(c.name + " " + c.args)
		fmt.Fprintf(p.out, "  %-22s %s\n", usage, c.help)
	}
	return nil
}

func (p *Presenter) info(_ []string) error {
	s, err := p.active()
	if err != nil {
		return err
	}
	p.printInfo(s.Info())
	return nil
}

func (p *Presenter) printInfo(info scanner.Info) {
	fmt.Fprintf(p.out, "camera: zoom %.1fx", info.Zoom)
	if info.ShowZoomSelector {
		factors := make([]string, len(info.ZoomFactors))
		for i, f := range info.ZoomFactors {
			factors[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		fmt.Fprintf(p.out, " (available %s)", strings.Join(factors, ", "))
	}
	if info.HasTorch {
		onOff := "off"
		if info.TorchOn {
			onOff = "on"
		}
		fmt.Fprintf(p.out, ", torch %s", onOff)
	}
	if info.ButtonGated {
		fmt.Fprintf(p.out, ", trigger armed: %t", info.Armed)
	}
	fmt.Fprintln(p.out)
}

func (p *Presenter) torch(args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return &UsageError{Command: "torch", Usage: "on|off"}
	}
	s, err := p.active()
	if err != nil {
		return err
	}
	return s.SetTorch(args[0] == "on")
}

func (p *Presenter) zoom(args []string) error {
	if len(args) != 1 {
		return &UsageError{Command: "zoom", Usage: "<factor>"}
	}
	factor, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "x"), 64)
	if err != nil || factor <= 0 {
		return &UsageError{Command: "zoom", Usage: "<factor>"}
	}
	s, err := p.active()
	if err != nil {
		return err
	}
	if err := s.SetZoom(factor); err != nil {
		return err
	}
	p.printInfo(s.Info())
	return nil
}

func (p *Presenter) trigger(args []string) error {
	arm := true
	switch {
	case len(args) == 1 && args[0] == "off":
		arm = false
	case len(args) != 0:
		return &UsageError{Command: "trigger", Usage: "[off]"}
	}
	s, err := p.active()
	if err != nil {
		return err
	}
	if !s.Info().ButtonGated {
		fmt.Fprintln(p.out, "scanning continuously; trigger has no effect")
		return nil
	}
	s.Arm(arm)
	return nil
}

func (p *Presenter) frame(args []string) error {
	if len(args) != 4 {
		return &UsageError{Command: "frame", Usage: "<x> <y> <w> <h>"}
	}
	var v [4]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return &UsageError{Command: "frame", Usage: "<x> <y> <w> <h>"}
		}
		v[i] = f
	}
	s, err := p.active()
	if err != nil {
		return err
	}
	if !s.UpdateScanFrame(decode.ScanFrame{X: v[0], Y: v[1], Width: v[2], Height: v[3]}) {
		fmt.Fprintln(p.out, "scan frame stored; applied once the screen size is known")
	}
	return nil
}

func (p *Presenter) cancel(_ []string) error {
	s, err := p.active()
	if err != nil {
		return err
	}
	s.Cancel()
	return nil
}

func (p *Presenter) quit(_ []string) error {
	if s := p.Session(); s != nil {
		s.Cancel()
	}
	return ErrQuit
}
