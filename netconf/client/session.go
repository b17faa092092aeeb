package client

import (
	"context"
	"encoding/xml"
	"io"
	"sync"
	"time"

	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/common/codec"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrSessionClosed is returned for requests whose session ended before a reply arrived.
var ErrSessionClosed = errors.New("netconf session closed")

// Session is a netconf session: requests executed over it are correlated with their replies by message-id.
// A Session is safe for concurrent use.
type Session interface {
	// Execute sends req to the server and waits for its reply. A reply holding an error-severity
	// rpc-error is delivered together with that error, as a *common.RPCError.
	Execute(req common.Request) (*common.RPCReply, error)

	// Close ends the session. Requests still waiting for a reply fail with ErrSessionClosed.
	Close()

	// ID delivers the session id allocated by the server.
	ID() uint64

	// ServerCapabilities delivers the capabilities of the server hello.
	ServerCapabilities() []string
}

type session struct {
	cfg    *Config
	t      Transport
	target string
	trace  *ClientTrace

	dec *codec.Decoder
	enc *codec.Encoder

	hello  *common.HelloMessage
	helloc chan error

	// sending serialises the encoding of requests.
	sending sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *common.RPCReply
	ended   bool
}

// NewSession exchanges hellos over t, and delivers the session once the server hello has arrived.
// Chunked framing is used from then on when both peers advertise base:1.1.
// The transport is closed if the hello exchange fails, or takes longer than cfg.SetupTimeoutSecs.
func NewSession(ctx context.Context, t Transport, cfg *Config) (Session, error) {
	s := &session{
		cfg:     cfg,
		t:       t,
		target:  t.Target(),
		trace:   ContextClientTrace(ctx),
		dec:     codec.NewDecoder(t),
		enc:     codec.NewEncoder(t),
		helloc:  make(chan error, 1),
		pending: map[string]chan *common.RPCReply{},
	}

	if err := s.enc.Encode(&common.HelloMessage{Capabilities: cfg.capabilities()}); err != nil {
		s.fail("send hello", err)
		return nil, errors.Wrap(err, "failed to send hello")
	}

	go s.receive()

	if err := s.awaitHello(ctx); err != nil {
		s.fail("await hello", err)
		return nil, err
	}
	return s, nil
}

func (s *session) awaitHello(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.setupTimeout())
	defer timer.Stop()

	select {
	case err := <-s.helloc:
		return err
	case <-timer.C:
		return errors.Errorf("no hello from %s within %ds", s.target, s.cfg.SetupTimeoutSecs)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) fail(context string, err error) {
	s.trace.Error(context, s.target, err)
	_ = s.t.Close()
}

func (s *session) Execute(req common.Request) (reply *common.RPCReply, err error) {
	s.trace.ExecuteStart(s.target, req)
	defer func(begin time.Time) {
		s.trace.ExecuteDone(s.target, req, reply, err, time.Since(begin))
	}(time.Now())

	id := uuid.NewString()
	replyc, err := s.register(id)
	if err != nil {
		return nil, err
	}

	if err = s.send(&common.RPCMessage{MessageID: id, Content: common.NewContent(req)}); err != nil {
		s.unregister(id)
		return nil, err
	}

	reply, ok := <-replyc
	if !ok {
		return nil, ErrSessionClosed
	}
	return reply, reply.Err()
}

func (s *session) send(msg *common.RPCMessage) error {
	s.sending.Lock()
	defer s.sending.Unlock()
	return s.enc.Encode(msg)
}

func (s *session) register(id string) (chan *common.RPCReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, ErrSessionClosed
	}
	replyc := make(chan *common.RPCReply, 1)
	s.pending[id] = replyc
	return replyc, nil
}

func (s *session) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// deliver hands reply to the request carrying the same message-id.
func (s *session) deliver(reply *common.RPCReply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replyc, ok := s.pending[reply.MessageID]
	if !ok {
		s.trace.Error("rpc-reply", s.target, errors.Errorf("no request outstanding for message-id %q", reply.MessageID))
		return
	}
	delete(s.pending, reply.MessageID)
	replyc <- reply
}

// end fails the outstanding requests, and any that follow.
func (s *session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ended = true
	if len(s.pending) > 0 {
		s.trace.Error("session ended", s.target, errors.Wrapf(ErrSessionClosed, "%d replies lost", len(s.pending)))
	}
	for id, replyc := range s.pending {
		close(replyc)
		delete(s.pending, id)
	}
}

func (s *session) Close() {
	if err := s.t.Close(); err != nil {
		s.trace.Error("close", s.target, err)
	}
}

func (s *session) ID() uint64 {
	return s.hello.SessionID
}

func (s *session) ServerCapabilities() []string {
	return s.hello.Capabilities
}

// receive reads messages until the transport ends, delivering the server hello and then replies.
func (s *session) receive() {
	defer s.end()

	greeted := false
	for {
		token, err := s.dec.Token()
		if err != nil {
			if !greeted {
				s.helloc <- errors.Wrap(err, "session ended before the server hello")
			} else if err != io.EOF {
				s.trace.Error("read", s.target, err)
			}
			return
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch {
		case !greeted && start.Name == common.NameHello:
			err = s.receiveHello(&start)
			greeted = err == nil
			s.helloc <- err
		case greeted && start.Name == common.NameRPCReply:
			err = s.receiveReply(&start)
		default:
			err = s.dec.Skip()
		}
		if err != nil {
			s.trace.Error("decode "+start.Name.Local, s.target, err)
			return
		}
	}
}

func (s *session) receiveHello(start *xml.StartElement) error {
	hello := &common.HelloMessage{}
	if err := s.dec.DecodeElement(hello, start); err != nil {
		return errors.Wrap(err, "malformed server hello")
	}
	if hello.SessionID == 0 {
		return errors.New("server hello carries no session-id")
	}
	s.hello = hello

	if !s.cfg.DisableChunkedCodec && hello.Supports(common.CapBase11) {
		codec.UpgradeFraming(s.dec, s.enc)
	}
	s.trace.HelloDone(s.target, hello)
	return nil
}

func (s *session) receiveReply(start *xml.StartElement) error {
	reply := &common.RPCReply{}
	if err := s.dec.DecodeElement(reply, start); err != nil {
		return err
	}
	reply.Namespaces = common.NamespaceDeclarations(start.Attr)
	s.deliver(reply)
	return nil
}
