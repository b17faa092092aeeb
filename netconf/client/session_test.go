package client

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/common/codec"
	"github.com/damianoneill/ncclient/netconf/mocks"
	"github.com/damianoneill/ncclient/netconf/testserver"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	assert "github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestNewSessionFraming(t *testing.T) {
	tests := []struct {
		name       string
		serverCaps []string
		cfg        *Config
		clientCaps []string
		chunked    bool
	}{
		{"Chunked", common.DefaultCapabilities, DefaultConfig, common.DefaultCapabilities, true},
		{"ServerBase10", common.Base10Capabilities, DefaultConfig, common.DefaultCapabilities, false},
		{"ChunkedCodecDisabled", common.DefaultCapabilities, &Config{DisableChunkedCodec: true}, common.Base10Capabilities, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testserver.NewTestNetconfServer(t).WithCapabilities(tt.serverCaps)
			defer ts.Close()

			ncs := newNCClientSessionWithConfig(t, ts, tt.cfg)
			defer ncs.Close()

			sh := ts.SessionHandler(ncs.ID())
			sh.WaitStart()
			assert.Equal(t, tt.clientCaps, sh.ClientHello.Capabilities)
			assert.Equal(t, tt.serverCaps, ncs.ServerCapabilities())
			assert.Equal(t, tt.chunked, ncs.(*session).enc.Chunked())

			reply, err := ncs.Execute(common.Request(`<get><response/></get>`))
			assert.NoError(t, err)
			assert.Equal(t, `<data><response/></data>`, reply.Data)
		})
	}
}

func TestNewSessionHelloSendFailure(t *testing.T) {
	tr := mocks.NewTransport(t)
	tr.On("Target").Return("device:830")
	tr.On("Write", mock.Anything).Return(0, errors.New("broken pipe"))
	tr.On("Close").Return(nil)

	s, err := NewSession(context.Background(), tr, DefaultConfig)
	assert.EqualError(t, errors.Cause(err), "broken pipe")
	assert.Nil(t, s)
}

func TestNewSessionHelloFailures(t *testing.T) {
	tests := []struct {
		name   string
		hello  string
		cfg    *Config
		cancel bool
		expect string
	}{
		{"NoSessionID", `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"/>`, DefaultConfig, false, "server hello carries no session-id"},
		{"Timeout", "", &Config{SetupTimeoutSecs: 1}, false, "no hello from pipe within 1s"},
		{"Cancelled", "", DefaultConfig, true, context.Canceled.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, server := newPipeTransport()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go func() {
				_, _ = server.readHello()
				if tt.hello != "" {
					_, _ = io.WriteString(server.w, tt.hello+"]]>]]>")
				}
				if tt.cancel {
					cancel()
				}
			}()

			s, err := NewSession(ctx, tr, tt.cfg)
			assert.EqualError(t, err, tt.expect)
			assert.Nil(t, s)
			assert.True(t, tr.isClosed(), "Transport should be closed")
		})
	}
}

func TestExecute(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t)
	defer ts.Close()

	ncs := newNCClientSession(t, ts)
	defer ncs.Close()

	sh := ts.SessionHandler(ncs.ID())
	assert.Nil(t, sh.LastReq())

	reply, err := ncs.Execute(common.Request(`<get><response/></get>`))
	assert.NoError(t, err)
	assert.Equal(t, `<data><response/></data>`, reply.Data)
	assert.NotEmpty(t, reply.MessageID)
	assert.Equal(t, 1, sh.ReqCount())
	assert.Equal(t, "get", sh.LastReq().XMLName.Local)
	assert.Equal(t, "<response/>", sh.LastReq().Body)
}

func TestExecuteStruct(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t)
	defer ts.Close()

	ncs := newNCClientSession(t, ts)
	defer ncs.Close()

	type get struct {
		XMLName xml.Name `xml:"get"`
		Filter  string   `xml:"filter"`
	}

	reply, err := ncs.Execute(common.Request(&get{Filter: "f"}))
	assert.NoError(t, err)
	assert.Equal(t, `<data><filter>f</filter></data>`, reply.Data)
}

func TestExecuteRPCError(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t).WithRequestHandler(testserver.FailingRequestHandler)
	defer ts.Close()

	ncs := newNCClientSession(t, ts)
	defer ncs.Close()

	reply, err := ncs.Execute(common.Request(`<get/>`))
	assert.EqualError(t, err, "netconf rpc [error] 'oops'")
	assert.NotNil(t, reply, "Reply should be delivered with its error")

	rpcErr := &common.RPCError{}
	assert.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "operation-failed", rpcErr.Tag)
}

func TestExecuteAfterSessionEnd(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t)
	ncs := newNCClientSession(t, ts)
	defer ncs.Close()

	ts.Close()
	assert.Eventually(t, func() bool {
		_, err := ncs.Execute(common.Request(`<get/>`))
		return errors.Is(err, ErrSessionClosed)
	}, time.Second, 10*time.Millisecond)
}

func TestExecuteReplyNamespaces(t *testing.T) {
	reply := testserver.DataReply(`<ex:a/><b xmlns="urn:b"/>`).WithNamespace("ex", "urn:ex")
	ts := testserver.NewTestNetconfServer(t).WithRequestHandler(testserver.ReplyWith(reply))
	defer ts.Close()

	ncs := newNCClientSession(t, ts)
	defer ncs.Close()

	received, err := ncs.Execute(common.Request(`<get/>`))
	assert.NoError(t, err)

	elements, err := common.ChildElements(received.Data, received.Namespaces)
	assert.NoError(t, err)
	assert.Len(t, elements, 2)

	for i, name := range []xml.Name{{Space: "urn:ex", Local: "a"}, {Space: "urn:b", Local: "b"}} {
		reparsed, err := common.ParseElement(elements[i].String())
		assert.NoError(t, err)
		assert.Equal(t, name, reparsed.XMLName)
	}
}

func TestExecuteCorrelatesReplies(t *testing.T) {
	tr, server := newPipeTransport()
	go server.greet(7)

	ncs, err := NewSession(context.Background(), tr, DefaultConfig)
	assert.NoError(t, err)
	defer ncs.Close()
	assert.Equal(t, uint64(7), ncs.ID())

	replies := make(chan string, 2)
	for _, body := range []string{"<first/>", "<second/>"} {
		go func(body string) {
			reply, err := ncs.Execute(common.Request(body))
			if err != nil {
				replies <- err.Error()
				return
			}
			replies <- body + "=" + reply.Data
		}(body)
	}

	first, err := server.readRequest()
	assert.NoError(t, err)
	second, err := server.readRequest()
	assert.NoError(t, err)

	assert.NoError(t, server.reply("unknown", "<ignored/>"))
	assert.NoError(t, server.reply(second.MessageID, second.Body))
	assert.NoError(t, server.reply(first.MessageID, first.Body))

	assert.ElementsMatch(t, []string{"<first/>=<first/>", "<second/>=<second/>"}, []string{<-replies, <-replies})
}

func TestUnexpectedReplyReported(t *testing.T) {
	tr, server := newPipeTransport()
	go server.greet(1)

	reported := make(chan string, 1)
	ctx := WithClientTrace(context.Background(), &ClientTrace{
		Error: func(context, target string, err error) { reported <- context + ": " + err.Error() },
	})

	ncs, err := NewSession(ctx, tr, DefaultConfig)
	assert.NoError(t, err)
	defer ncs.Close()

	assert.NoError(t, server.reply("42", "<ok/>"))
	assert.Equal(t, `rpc-reply: no request outstanding for message-id "42"`, <-reported)
}

func TestConcurrentExecute(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t)
	defer ts.Close()

	ncs := newNCClientSession(t, ts)
	defer ncs.Close()

	var wg sync.WaitGroup
	for r := 0; r < 10; r++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				reply, err := ncs.Execute(common.Request(fmt.Sprintf(`<get><r%d/></get>`, id)))
				assert.NoError(t, err)
				assert.Equal(t, fmt.Sprintf(`<data><r%d/></data>`, id), reply.Data)
			}
		}(r)
	}
	wg.Wait()
	assert.Equal(t, 500, ts.SessionHandler(ncs.ID()).ReqCount())
}

func BenchmarkExecute(b *testing.B) {
	ts := testserver.NewTestNetconfServer(b)
	defer ts.Close()
	ncs := newNCClientSession(b, ts)
	defer ncs.Close()

	for n := 0; n < b.N; n++ {
		_, _ = ncs.Execute(common.Request(`<get-config><source><running/></source></get-config>`))
	}
}

// pipeTransport connects a session to a scripted server over in-memory pipes.
type pipeTransport struct {
	r *io.PipeReader
	w *io.PipeWriter

	lock   sync.Mutex
	closed bool
}

func (p *pipeTransport) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeTransport) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeTransport) Target() string              { return "pipe" }

func (p *pipeTransport) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed = true
	_ = p.w.Close()
	return p.r.Close()
}

func (p *pipeTransport) isClosed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}

// scriptedServer is the far end of a pipeTransport, using end-of-message framing throughout.
type scriptedServer struct {
	dec *codec.Decoder
	enc *codec.Encoder
	w   *io.PipeWriter
}

type request struct {
	MessageID string `xml:"message-id,attr"`
	Body      string `xml:",innerxml"`
}

func newPipeTransport() (*pipeTransport, *scriptedServer) {
	fromServer, toClient := io.Pipe()
	fromClient, toServer := io.Pipe()
	return &pipeTransport{r: fromServer, w: toServer},
		&scriptedServer{dec: codec.NewDecoder(fromClient), enc: codec.NewEncoder(toClient), w: toClient}
}

func (s *scriptedServer) readHello() (*common.HelloMessage, error) {
	hello := &common.HelloMessage{}
	return hello, s.dec.Decode(hello)
}

func (s *scriptedServer) greet(id uint64) {
	if _, err := s.readHello(); err == nil {
		_ = s.enc.Encode(&common.HelloMessage{Capabilities: common.Base10Capabilities, SessionID: id})
	}
}

func (s *scriptedServer) readRequest() (*request, error) {
	req := &request{}
	return req, s.dec.Decode(req)
}

func (s *scriptedServer) reply(id, body string) error {
	_, err := fmt.Fprintf(s.w, `<rpc-reply xmlns="%s" message-id="%s">%s</rpc-reply>]]>]]>`, common.NetconfNS, id, body)
	return err
}

func testSSHConfig() *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            testserver.TestUserName,
		Auth:            []ssh.AuthMethod{ssh.Password(testserver.TestPassword)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint: gosec
	}
}

func newNCClientSession(t assert.TestingT, ts *testserver.TestNCServer) Session {
	return newNCClientSessionWithConfig(t, ts, DefaultConfig)
}

func newNCClientSessionWithConfig(t assert.TestingT, ts *testserver.TestNCServer, cfg *Config) Session {
	s, err := NewRPCSessionWithConfig(context.Background(), testSSHConfig(), fmt.Sprintf("localhost:%d", ts.Port()), cfg)
	assert.NoError(t, err, "Failed to create session")
	return s
}
