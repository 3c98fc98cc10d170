// Package operator coordinates blocking operator-in-the-loop pauses.
//
// The resolution pipeline stops at two points that automation cannot
// clear on its own: session warm-up and an interactive bot-challenge.
// A Gate represents the human acknowledgment required to continue.
// There is deliberately no timeout that silently resumes; the wait ends
// only with an acknowledgment or with context cancellation.
package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"tracuu/internal/logging"
	"tracuu/internal/services"
)

// Gate blocks until a human acknowledges a condition.
type Gate interface {
	Confirm(ctx context.Context, reason string) error
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, reason string) error

// Confirm implements Gate.
func (f GateFunc) Confirm(ctx context.Context, reason string) error {
	return f(ctx, reason)
}

// ConsolePrompt implements Gate over an interactive terminal: it prints
// a banner describing what the operator must do and waits for Enter.
type ConsolePrompt struct {
	out    io.Writer
	in     io.Reader
	logger *slog.Logger

	once    sync.Once
	lines   chan struct{}
	closed  chan struct{}
	readErr error
}

// NewConsolePrompt builds a prompt reading acknowledgments from in and
// writing banners to out.
func NewConsolePrompt(in io.Reader, out io.Writer, logger *slog.Logger) *ConsolePrompt {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ConsolePrompt{
		out:    out,
		in:     in,
		logger: logging.NewComponentLogger(logger, "operator"),
		lines:  make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// Confirm prints the banner and blocks until the operator presses Enter
// or ctx is canceled. A closed input stream counts as a blocked state
// since no acknowledgment can ever arrive.
func (p *ConsolePrompt) Confirm(ctx context.Context, reason string) error {
	p.start()

	rule := strings.Repeat("=", 80)
	fmt.Fprintf(p.out, "\n%s\n", rule)
	fmt.Fprintf(p.out, "[MANUAL ACTION REQUIRED] %s\n", reason)
	fmt.Fprintf(p.out, "Resolve the condition, then return here and press Enter to continue.\n")
	fmt.Fprintf(p.out, "%s\n\n", rule)

	p.logger.Warn("waiting for operator acknowledgment",
		logging.String("reason", reason),
		logging.Alert("operator"),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.lines:
		p.logger.Info("operator acknowledged", logging.String("reason", reason))
		return nil
	case <-p.closed:
		return services.Wrap(services.ErrBlocked, "operator", "confirm", "input closed before acknowledgment", p.readErr)
	}
}

// start launches the single input pump. One goroutine owns the reader
// so an abandoned Confirm never races a later one.
func (p *ConsolePrompt) start() {
	p.once.Do(func() {
		go func() {
			scanner := bufio.NewScanner(p.in)
			for scanner.Scan() {
				select {
				case p.lines <- struct{}{}:
				default:
					// Nobody waiting; swallow the stray line.
				}
			}
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			p.readErr = err
			close(p.closed)
		}()
	})
}

// Deny returns a Gate for unattended runs: every confirmation request
// fails immediately so a challenge surfaces as a blocked tier instead
// of hanging a headless process.
func Deny() Gate {
	return GateFunc(func(ctx context.Context, reason string) error {
		return services.Wrap(services.ErrBlocked, "operator", "confirm", "interactive confirmation unavailable: "+reason, nil)
	})
}
