// Package testserver provides an in-process netconf server, and a simulated device behind it, for tests and examples.
package testserver

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/damianoneill/ncclient/netconf/common"

	assert "github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// Credentials accepted by test servers.
const (
	TestUserName = "testUser"
	TestPassword = "testPassword"
)

// TestNCServer is a netconf server listening on an ephemeral localhost port.
// Requests are served by a queue of scripted request handlers; once the queue is empty they are
// handled by the attached Device, or echoed if there is none.
type TestNCServer struct {
	*SSHServer

	lock        sync.Mutex
	sessions    map[uint64]*SessionHandler
	lastID      uint64
	reqHandlers []RequestHandler
	caps        []string
	device      *Device

	tctx assert.TestingT
}

// NewTestNetconfServer starts a server accepting the TestUserName/TestPassword credential.
// Failures are reported to tctx; a nil tctx reports them on stdout and ends the calling goroutine.
func NewTestNetconfServer(tctx assert.TestingT) *TestNCServer {
	ncs := &TestNCServer{sessions: map[uint64]*SessionHandler{}}
	if tctx == nil {
		tctx = ncs
	}
	ncs.tctx = tctx

	var err error
	ncs.SSHServer, err = listenSSH(TestUserName, TestPassword, ncs.serveSession)
	assert.NoError(tctx, err, "Failed to start netconf server")
	return ncs
}

func (ncs *TestNCServer) serveSession(_ *ssh.ServerConn, ch ssh.Channel) {
	ncs.lock.Lock()
	ncs.lastID++
	h := newSessionHandler(ncs, ncs.lastID, ch)
	ncs.sessions[h.id] = h
	caps := ncs.caps
	ncs.lock.Unlock()

	if caps == nil {
		caps = common.DefaultCapabilities
	}
	h.serve(caps)
}

// WithRequestHandler appends rh to the queue of handlers shared by the server's sessions.
func (ncs *TestNCServer) WithRequestHandler(rh RequestHandler) *TestNCServer {
	ncs.lock.Lock()
	defer ncs.lock.Unlock()
	ncs.reqHandlers = append(ncs.reqHandlers, rh)
	return ncs
}

// WithCapabilities sets the capabilities advertised to clients that connect from now on.
func (ncs *TestNCServer) WithCapabilities(caps []string) *TestNCServer {
	ncs.lock.Lock()
	defer ncs.lock.Unlock()
	ncs.caps = caps
	return ncs
}

// WithDevice attaches d, which handles requests once the handler queue is empty.
// Unless capabilities have been set, the server advertises DeviceCapabilities.
func (ncs *TestNCServer) WithDevice(d *Device) *TestNCServer {
	ncs.lock.Lock()
	defer ncs.lock.Unlock()
	ncs.device = d
	if ncs.caps == nil {
		ncs.caps = DeviceCapabilities
	}
	return ncs
}

// Device delivers the attached device, if any.
func (ncs *TestNCServer) Device() *Device {
	ncs.lock.Lock()
	defer ncs.lock.Unlock()
	return ncs.device
}

// LastHandler delivers the handler of the most recent session.
func (ncs *TestNCServer) LastHandler() *SessionHandler {
	ncs.lock.Lock()
	defer ncs.lock.Unlock()
	return ncs.sessions[ncs.lastID]
}

// SessionHandler delivers the handler of session id, failing the test if there is none.
func (ncs *TestNCServer) SessionHandler(id uint64) *SessionHandler {
	h := ncs.session(id)
	if h == nil {
		ncs.tctx.Errorf("no handler for session %d", id)
		ncs.tctx.FailNow()
	}
	return h
}

// Errorf reports a failure when the server was started without a test context.
func (ncs *TestNCServer) Errorf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// FailNow ends the calling goroutine when the server was started without a test context.
func (ncs *TestNCServer) FailNow() {
	runtime.Goexit()
}

func (ncs *TestNCServer) session(id uint64) *SessionHandler {
	ncs.lock.Lock()
	defer ncs.lock.Unlock()
	return ncs.sessions[id]
}

func (ncs *TestNCServer) nextReqHandler() RequestHandler {
	ncs.lock.Lock()
	defer ncs.lock.Unlock()

	if len(ncs.reqHandlers) > 0 {
		rh := ncs.reqHandlers[0]
		ncs.reqHandlers = ncs.reqHandlers[1:]
		return rh
	}
	if ncs.device != nil {
		return ncs.device.HandleRequest
	}
	return EchoRequestHandler
}
