// Package shell provides the interactive command loop of the ncclient command.
package shell

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/damianoneill/ncclient/ncclient"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
)

// LineReader supplies lines of operator input. It is satisfied by *readline.Instance.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Shell dispatches commands to a session.
type Shell struct {
	session   *ncclient.Session
	datastore ncclient.Datastore
	out       io.Writer
}

// New delivers a shell issuing commands to s, writing results to out.
// Commands without an explicit datastore target ds.
func New(s *ncclient.Session, ds ncclient.Datastore, out io.Writer) *Shell {
	return &Shell{session: s, datastore: ds, out: out}
}

// Datastore delivers the current datastore.
func (sh *Shell) Datastore() ncclient.Datastore {
	return sh.datastore
}

// SetOutput redirects results and errors to out.
func (sh *Shell) SetOutput(out io.Writer) {
	sh.out = out
}

// NewReadline delivers a line reader with command completion, prompting with the device address.
func NewReadline(address string, stdin io.ReadCloser, stdout io.Writer) (*readline.Instance, error) {
	var items []readline.PrefixCompleterInterface
	for _, name := range Commands() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewEx(&readline.Config{
		Prompt:          address + "> ",
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           stdin,
		Stdout:          stdout,
	})
}

// Run reads and executes commands until exit, end of input or ctx is done.
// Failed commands are reported and the loop continues. When ctx is done lr is closed,
// ending a read in progress.
func (sh *Shell) Run(ctx context.Context, lr LineReader) error {
	var closing sync.Once
	closeReader := func() { closing.Do(func() { _ = lr.Close() }) }
	defer closeReader()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeReader()
		case <-done:
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := lr.Readline()
		if ctx.Err() != nil {
			return nil
		}
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read command")
		}

		cmd, err := Parse(line)
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
			continue
		}
		if _, ok := cmd.(Exit); ok {
			return nil
		}
		if cmd == nil {
			continue
		}

		result, err := sh.Execute(cmd)
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
			continue
		}
		if result != "" {
			fmt.Fprintln(sh.out, result)
		}
	}
}

// Execute runs a single command, delivering its output.
func (sh *Shell) Execute(cmd Command) (string, error) {
	switch c := cmd.(type) {
	case Get:
		doc, err := sh.session.Get(c.Filter)
		return doc.String(), err
	case GetConfig:
		doc, err := sh.session.GetConfig(sh.target(c.Datastore), c.Filter)
		return doc.String(), err
	case Lock:
		return sh.ok(sh.session.Lock(sh.target(c.Datastore)))
	case Unlock:
		return sh.ok(sh.session.Unlock(sh.target(c.Datastore)))
	case EditConfig:
		return sh.ok(sh.session.EditConfig(sh.target(c.Datastore), c.Config))
	case CopyConfig:
		return sh.ok(sh.session.CopyConfig(sh.target(c.Datastore), c.Config))
	case Commit:
		return sh.ok(sh.session.Commit())
	case Discard:
		return sh.ok(sh.session.DiscardChanges())
	case Use:
		sh.datastore = c.Datastore
		return "using " + c.Datastore.String(), nil
	case Info:
		if sh.session.ID() == 0 {
			return "", ncclient.ErrNotConnected
		}
		return fmt.Sprintf("session-id: %d\ncapabilities:\n  %s", sh.session.ID(), strings.Join(sh.session.Capabilities(), "\n  ")), nil
	case Help:
		return help(), nil
	case Exit:
		return "", nil
	}
	return "", errors.Errorf("unsupported command %T", cmd)
}

func (sh *Shell) target(ds *ncclient.Datastore) ncclient.Datastore {
	if ds == nil {
		return sh.datastore
	}
	return *ds
}

func (sh *Shell) ok(err error) (string, error) {
	if err != nil {
		return "", err
	}
	return "ok", nil
}

func help() string {
	var sb strings.Builder
	for _, u := range usage {
		fmt.Fprintf(&sb, "%-16s %-22s %s\n", u.name, u.args, u.text)
	}
	return strings.TrimRight(sb.String(), "\n")
}
