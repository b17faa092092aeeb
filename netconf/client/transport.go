package client

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// Transport carries the framed messages of one session.
type Transport interface {
	io.ReadWriteCloser

	// Target delivers the address of the remote server.
	Target() string
}

type sshTransport struct {
	target string
	trace  *ClientTrace

	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader

	closing sync.Once
	closed  error
}

// NewSSHTransport opens an ssh connection to target and starts subsystem on it.
// The dial is abandoned if ctx is cancelled, or after cfg.Timeout if that is set.
func NewSSHTransport(ctx context.Context, cfg *ssh.ClientConfig, target, subsystem string) (_ Transport, err error) {
	t := &sshTransport{target: target, trace: ContextClientTrace(ctx)}

	t.trace.DialStart(target, cfg.User)
	defer func(begin time.Time) {
		t.trace.DialDone(target, err, time.Since(begin))
	}(time.Now())

	if t.client, err = dialSSH(ctx, cfg, target); err != nil {
		return nil, err
	}
	if err = t.startSubsystem(subsystem); err != nil {
		_ = t.client.Close()
		return nil, err
	}
	return t, nil
}

func dialSSH(ctx context.Context, cfg *ssh.ClientConfig, target string) (*ssh.Client, error) {
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, target, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

func (t *sshTransport) startSubsystem(subsystem string) (err error) {
	if t.session, err = t.client.NewSession(); err != nil {
		return errors.Wrap(err, "failed to open ssh session")
	}
	if t.stdin, err = t.session.StdinPipe(); err != nil {
		return err
	}
	if t.stdout, err = t.session.StdoutPipe(); err != nil {
		return err
	}
	return errors.Wrapf(t.session.RequestSubsystem(subsystem), "failed to start subsystem %s", subsystem)
}

func (t *sshTransport) Target() string {
	return t.target
}

func (t *sshTransport) Read(p []byte) (n int, err error) {
	n, err = t.stdout.Read(p)
	t.trace.Read(t.target, n, err)
	return
}

func (t *sshTransport) Write(p []byte) (n int, err error) {
	n, err = t.stdin.Write(p)
	t.trace.Written(t.target, n, err)
	return
}

// Close releases the subsystem stdin, the ssh session and the ssh connection, in that order.
// The first failure is reported. Closing again delivers the same result.
func (t *sshTransport) Close() error {
	t.closing.Do(func() {
		errs := []error{t.stdin.Close(), t.session.Close(), t.client.Close()}
		for _, err := range errs {
			if err != nil && err != io.EOF {
				t.closed = err
				break
			}
		}
		t.trace.Closed(t.target, t.closed)
	})
	return t.closed
}
