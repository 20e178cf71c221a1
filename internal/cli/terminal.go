package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vietddude/bridge/internal/control"
	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
	"github.com/vietddude/bridge/internal/workflow"
)

// terminal is the session host: it approves wallet prompts on stdin, reads
// wallet keys and prints workflow notifications.
//
// Input is read by a single goroutine so that every prompt can give up when
// its context is cancelled. A line typed after a cancelled prompt goes to the
// next reader.
type terminal struct {
	in  io.Reader
	yes bool

	start   sync.Once
	lines   chan string
	readErr error

	mu  sync.Mutex
	out io.Writer
}

var (
	_ chain.Prompter    = (*terminal)(nil)
	_ control.KeyReader = (*terminal)(nil)
	_ workflow.Notifier = (*terminal)(nil)
)

func newTerminal(in io.Reader, out io.Writer, yes bool) *terminal {
	return &terminal{in: in, out: out, yes: yes}
}

// Confirm shows the wallet prompt. A closed input rejects it.
func (t *terminal) Confirm(ctx context.Context, summary string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if t.yes {
		t.printf("%s [approved]\n", summary)
		return true, nil
	}

	t.printf("%s\nApprove? [y/N] ", summary)
	line, err := t.readLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ReadKey asks for the private key of a wallet to connect. A closed input
// declines.
func (t *terminal) ReadKey(ctx context.Context, family domain.ChainFamily) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.printf("No %s wallet connected. Private key (empty to cancel): ", family)
	line, err := t.readLine(ctx)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	return line, err
}

func (t *terminal) Notify(n workflow.Notification) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", n.Level, n.Title)
	if n.Message != "" {
		fmt.Fprintf(&b, ": %s", n.Message)
	}
	if n.Link != "" {
		fmt.Fprintf(&b, " (%s)", n.Link)
	}
	t.printf("%s\n", b.String())
}

// readLine returns the next trimmed input line, or ctx.Err() if ctx ends
// first. The last line may end without a newline.
func (t *terminal) readLine(ctx context.Context) (string, error) {
	t.start.Do(func() {
		t.lines = make(chan string)
		go t.scan()
	})

	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", t.readErr
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// scan feeds input lines to readLine until the input fails. readErr is
// set before lines is closed.
func (t *terminal) scan() {
	r := bufio.NewReader(t.in)
	for {
		line, err := r.ReadString('\n')
		if line != "" || err == nil {
			t.lines <- strings.TrimSpace(line)
		}
		if err != nil {
			t.readErr = err
			close(t.lines)
			return
		}
	}
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(t.out, format, args...)
}
