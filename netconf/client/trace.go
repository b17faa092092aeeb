package client

import (
	"context"
	"log"
	"time"

	"github.com/damianoneill/ncclient/netconf/common"

	"github.com/imdario/mergo"
)

type clientTraceKey struct{}

// ContextClientTrace delivers the ClientTrace carried by ctx, with unset hooks defaulted to no-ops.
func ContextClientTrace(ctx context.Context) *ClientTrace {
	trace, _ := ctx.Value(clientTraceKey{}).(*ClientTrace)
	if trace == nil {
		return NoOpLoggingHooks
	}
	merged := *trace
	_ = mergo.Merge(&merged, NoOpLoggingHooks)
	return &merged
}

// WithClientTrace returns a context carrying trace, observed by sessions and transports created with it.
func WithClientTrace(ctx context.Context, trace *ClientTrace) context.Context {
	return context.WithValue(ctx, clientTraceKey{}, trace)
}

// ClientTrace holds hooks called as a session progresses. Every hook is passed the transport target.
//
//nolint:revive
type ClientTrace struct {
	// DialStart is called before the ssh connection to target is opened for user.
	DialStart func(target, user string)
	// DialDone is called once the ssh connection and netconf subsystem are set up, or have failed.
	DialDone func(target string, err error, d time.Duration)

	// HelloDone is called once the server hello has been received.
	HelloDone func(target string, hello *common.HelloMessage)

	// ExecuteStart is called before a request is sent.
	ExecuteStart func(target string, req common.Request)
	// ExecuteDone is called once the reply to a request has arrived, or the request has failed.
	ExecuteDone func(target string, req common.Request, reply *common.RPCReply, err error, d time.Duration)

	// Read is called after each read from the transport.
	Read func(target string, n int, err error)
	// Written is called after each write to the transport.
	Written func(target string, n int, err error)

	// Error is called when a failure is detected outside of a caller's request.
	Error func(context, target string, err error)

	// Closed is called once the transport has been closed.
	Closed func(target string, err error)
}

// DefaultLoggingHooks logs errors.
var DefaultLoggingHooks = &ClientTrace{
	Error: func(context, target string, err error) {
		log.Printf("NETCONF-Error context:%s target:%s err:%v\n", context, target, err)
	},
}

// DiagnosticLoggingHooks logs every event.
var DiagnosticLoggingHooks = &ClientTrace{
	DialStart: func(target, user string) {
		log.Printf("NETCONF-DialStart target:%s user:%s\n", target, user)
	},
	DialDone: func(target string, err error, d time.Duration) {
		log.Printf("NETCONF-DialDone target:%s err:%v took:%dms\n", target, err, d.Milliseconds())
	},
	HelloDone: func(target string, hello *common.HelloMessage) {
		log.Printf("NETCONF-HelloDone target:%s session-id:%d capabilities:%v\n", target, hello.SessionID, hello.Capabilities)
	},
	ExecuteStart: func(target string, req common.Request) {
		log.Printf("NETCONF-ExecuteStart target:%s req:%v\n", target, req)
	},
	ExecuteDone: func(target string, req common.Request, reply *common.RPCReply, err error, d time.Duration) {
		log.Printf("NETCONF-ExecuteDone target:%s err:%v took:%dms\n", target, err, d.Milliseconds())
	},
	Read: func(target string, n int, err error) {
		log.Printf("NETCONF-Read target:%s len:%d err:%v\n", target, n, err)
	},
	Written: func(target string, n int, err error) {
		log.Printf("NETCONF-Written target:%s len:%d err:%v\n", target, n, err)
	},
	Error: DefaultLoggingHooks.Error,
	Closed: func(target string, err error) {
		log.Printf("NETCONF-Closed target:%s err:%v\n", target, err)
	},
}

// NoOpLoggingHooks does nothing.
var NoOpLoggingHooks = &ClientTrace{
	DialStart:    func(target, user string) {},
	DialDone:     func(target string, err error, d time.Duration) {},
	HelloDone:    func(target string, hello *common.HelloMessage) {},
	ExecuteStart: func(target string, req common.Request) {},
	ExecuteDone:  func(target string, req common.Request, reply *common.RPCReply, err error, d time.Duration) {},
	Read:         func(target string, n int, err error) {},
	Written:      func(target string, n int, err error) {},
	Error:        func(context, target string, err error) {},
	Closed:       func(target string, err error) {},
}
