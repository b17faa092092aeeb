package testserver

import (
	"encoding/xml"
	"sync"

	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/common/codec"

	"golang.org/x/crypto/ssh"
)

// SessionHandler is the server side of a netconf session.
type SessionHandler struct {
	server *TestNCServer
	id     uint64
	ch     ssh.Channel

	dec     *codec.Decoder
	enc     *codec.Encoder
	sending sync.Mutex

	started  chan struct{}
	starting sync.Once

	// ClientHello is the hello received from the client, set once the session has started.
	ClientHello *common.HelloMessage

	lock     sync.Mutex
	reqCount int
	lastReq  *Operation
}

func newSessionHandler(server *TestNCServer, id uint64, ch ssh.Channel) *SessionHandler {
	return &SessionHandler{
		server:  server,
		id:      id,
		ch:      ch,
		dec:     codec.NewDecoder(ch),
		enc:     codec.NewEncoder(ch),
		started: make(chan struct{}),
	}
}

// ID delivers the session id sent to the client.
func (h *SessionHandler) ID() uint64 {
	return h.id
}

// WaitStart blocks until the client hello has been received, or the session has ended without one.
func (h *SessionHandler) WaitStart() {
	<-h.started
}

// Close ends the session by closing its channel.
func (h *SessionHandler) Close() {
	_ = h.ch.Close()
}

// ReqCount delivers the number of requests received by the session.
func (h *SessionHandler) ReqCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.reqCount
}

// LastReq delivers the operation of the most recent request, or nil if there is none.
func (h *SessionHandler) LastReq() *Operation {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.lastReq
}

// Send sends reply as it is, outside of the request handler queue.
func (h *SessionHandler) Send(reply *Reply) error {
	return h.send(reply)
}

// serve exchanges hellos, then replies to requests until the channel closes.
func (h *SessionHandler) serve(capabilities []string) {
	defer h.end()

	if err := h.send(&common.HelloMessage{Capabilities: capabilities, SessionID: h.id}); err != nil {
		return
	}

	hello := &common.HelloMessage{}
	if !h.next(common.NameHello.Local, hello) {
		return
	}
	h.ClientHello = hello
	if hello.Supports(common.CapBase11) && (&common.HelloMessage{Capabilities: capabilities}).Supports(common.CapBase11) {
		codec.UpgradeFraming(h.dec, h.enc)
	}
	h.starting.Do(func() { close(h.started) })

	for {
		req := &Request{}
		if !h.next(common.NameRPC.Local, req) {
			return
		}
		h.reply(req)
	}
}

// next decodes into v the next message named local, skipping any other.
func (h *SessionHandler) next(local string, v interface{}) bool {
	for {
		token, err := h.dec.Token()
		if err != nil {
			return false
		}
		start, ok := token.(xml.StartElement)
		switch {
		case !ok:
			continue
		case start.Name.Local == local:
			return h.dec.DecodeElement(v, &start) == nil
		default:
			if h.dec.Skip() != nil {
				return false
			}
		}
	}
}

func (h *SessionHandler) reply(req *Request) {
	h.lock.Lock()
	h.reqCount++
	h.lastReq = &req.Operation
	h.lock.Unlock()

	reply := h.server.nextReqHandler()(h, req)
	if reply == nil {
		return
	}
	if reply.MessageID == "" {
		reply.MessageID = req.MessageID
	}
	if err := h.send(reply); err != nil {
		return
	}
	if req.Operation.XMLName.Local == "close-session" && len(reply.Errors) == 0 {
		h.Close()
	}
}

func (h *SessionHandler) send(m interface{}) error {
	h.sending.Lock()
	defer h.sending.Unlock()
	return h.enc.Encode(m)
}

func (h *SessionHandler) end() {
	h.starting.Do(func() { close(h.started) })
	if d := h.server.Device(); d != nil {
		d.ReleaseLocks(h.id)
	}
}
