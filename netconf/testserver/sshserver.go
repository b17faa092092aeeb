package testserver

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"net"
	"sync"

	"github.com/pkg/errors"
	assert "github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// ChannelHandler serves the subsystem channel opened by a client connection.
// The channel is closed when it returns.
type ChannelHandler func(conn *ssh.ServerConn, ch ssh.Channel)

// SSHServer accepts password-authenticated ssh connections on an ephemeral localhost port,
// handing each subsystem channel to its handler.
type SSHServer struct {
	listener net.Listener
	config   *ssh.ServerConfig
	handle   ChannelHandler

	lock   sync.Mutex
	conns  map[*ssh.ServerConn]struct{}
	closed bool
}

// NewSSHServer delivers an ssh server, accepting the credential uname/password, that echoes each
// line it receives prefixed with "GOT:".
func NewSSHServer(t assert.TestingT, uname, password string) *SSHServer {
	s, err := listenSSH(uname, password, echo)
	assert.NoError(t, err, "Failed to start ssh server")
	return s
}

func echo(_ *ssh.ServerConn, ch ssh.Channel) {
	lines := bufio.NewScanner(ch)
	for lines.Scan() {
		if _, err := ch.Write([]byte("GOT:" + lines.Text() + "\n")); err != nil {
			return
		}
	}
}

func listenSSH(uname, password string, handle ChannelHandler) (*SSHServer, error) {
	config, err := passwordConfig(uname, password)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return nil, errors.Wrap(err, "failed to listen")
	}

	s := &SSHServer{listener: listener, config: config, handle: handle, conns: map[*ssh.ServerConn]struct{}{}}
	go s.accept()
	return s, nil
}

func passwordConfig(uname, password string) (*ssh.ServerConfig, error) {
	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == uname && subtle.ConstantTimeCompare(pass, []byte(password)) == 1 {
				return nil, nil
			}
			return nil, errors.Errorf("password rejected for %q", c.User())
		},
	}

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate host key")
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		return nil, err
	}
	config.AddHostKey(signer)
	return config, nil
}

// Port delivers the port the server listens on.
func (s *SSHServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close stops accepting connections, and drops those already established.
func (s *SSHServer) Close() {
	_ = s.listener.Close()

	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
}

func (s *SSHServer) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *SSHServer) serve(conn net.Conn) {
	sconn, channels, requests, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		_ = conn.Close()
		return
	}
	if !s.track(sconn) {
		_ = sconn.Close()
		return
	}
	defer s.untrack(sconn)

	go ssh.DiscardRequests(requests)

	for nch := range channels {
		if nch.ChannelType() != "session" {
			_ = nch.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, chreqs, err := nch.Accept()
		if err != nil {
			continue
		}
		go s.serveChannel(sconn, ch, chreqs)
	}
}

// serveChannel starts the handler once the client requests a subsystem.
func (s *SSHServer) serveChannel(conn *ssh.ServerConn, ch ssh.Channel, requests <-chan *ssh.Request) {
	started := false
	for req := range requests {
		ok := req.Type == "subsystem" && !started
		_ = req.Reply(ok, nil)
		if ok {
			started = true
			go func() {
				defer ch.Close()
				s.handle(conn, ch)
			}()
		}
	}
}

func (s *SSHServer) track(conn *ssh.ServerConn) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *SSHServer) untrack(conn *ssh.ServerConn) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.conns, conn)
	_ = conn.Close()
}
