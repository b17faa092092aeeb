package ncclient

import (
	"context"
	"log"
	"time"

	"github.com/imdario/mergo"
)

// unique type to prevent assignment.
type traceContextKey struct{}

// ContextTrace returns the Trace associated with the provided context.
// Hooks that are not defined are defaulted to no-ops.
func ContextTrace(ctx context.Context) *Trace {
	trace, _ := ctx.Value(traceContextKey{}).(*Trace)
	if trace == nil {
		return NoOpLoggingHooks
	}
	merged := *trace
	_ = mergo.Merge(&merged, NoOpLoggingHooks)
	return &merged
}

// WithTrace returns a new context based on the provided parent ctx.
// A connection established with the returned context reports events to the provided hooks for the rest of its life.
// Hooks for the underlying protocol engine are added with client.WithClientTrace.
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// Trace defines a structure for handling connection and operation events.
type Trace struct {
	// ConnectStart is called before dialling the device.
	ConnectStart func(address, username string)

	// ConnectDone is called when a connect attempt completes, with err indicating whether it was successful.
	ConnectDone func(address string, sessionID uint64, err error, d time.Duration)

	// OperationStart is called before an operation is issued. datastore is empty if the operation has no target.
	OperationStart func(operation, datastore string)

	// OperationDone is called after an operation completes.
	OperationDone func(operation, datastore string, err error, d time.Duration)

	// Disconnected is called after the session has been released.
	Disconnected func(address string, sessionID uint64)
}

// DefaultLoggingHooks provides a default logging hook to report errors.
var DefaultLoggingHooks = &Trace{
	ConnectDone: func(address string, sessionID uint64, err error, d time.Duration) {
		if err != nil {
			log.Printf("NCCLIENT-Error connect address:%s err:%v\n", address, err)
		}
	},
	OperationDone: func(operation, datastore string, err error, d time.Duration) {
		if err != nil {
			log.Printf("NCCLIENT-Error operation:%s datastore:%s err:%v\n", operation, datastore, err)
		}
	},
}

// DiagnosticLoggingHooks provides a set of default diagnostic hooks.
var DiagnosticLoggingHooks = &Trace{
	ConnectStart: func(address, username string) {
		log.Printf("NCCLIENT-ConnectStart address:%s user:%s\n", address, username)
	},
	ConnectDone: func(address string, sessionID uint64, err error, d time.Duration) {
		log.Printf("NCCLIENT-ConnectDone address:%s session-id:%d err:%v took:%dms\n", address, sessionID, err, d.Milliseconds())
	},
	OperationStart: func(operation, datastore string) {
		log.Printf("NCCLIENT-OperationStart operation:%s datastore:%s\n", operation, datastore)
	},
	OperationDone: func(operation, datastore string, err error, d time.Duration) {
		log.Printf("NCCLIENT-OperationDone operation:%s datastore:%s err:%v took:%dms\n", operation, datastore, err, d.Milliseconds())
	},
	Disconnected: func(address string, sessionID uint64) {
		log.Printf("NCCLIENT-Disconnected address:%s session-id:%d\n", address, sessionID)
	},
}

// NoOpLoggingHooks provides set of hooks that do nothing.
var NoOpLoggingHooks = &Trace{
	ConnectStart:   func(address, username string) {},
	ConnectDone:    func(address string, sessionID uint64, err error, d time.Duration) {},
	OperationStart: func(operation, datastore string) {},
	OperationDone:  func(operation, datastore string, err error, d time.Duration) {},
	Disconnected:   func(address string, sessionID uint64) {},
}
