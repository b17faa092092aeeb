package main

import (
	"io"
	"time"

	"github.com/damianoneill/ncclient/ncclient"
	"github.com/damianoneill/ncclient/netconf/client"
	"github.com/damianoneill/ncclient/netconf/common"

	"github.com/charmbracelet/log"
)

func newLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{Prefix: "ncclient", Level: lvl}), nil
}

// traceHooks reports connection and operation events to logger.
func traceHooks(logger *log.Logger) *ncclient.Trace {
	return &ncclient.Trace{
		ConnectStart: func(address, username string) {
			logger.Debug("connecting", "address", address, "user", username)
		},
		ConnectDone: func(address string, sessionID uint64, err error, d time.Duration) {
			if err != nil {
				logger.Debug("connect failed", "address", address, "err", err)
				return
			}
			logger.Info("connected", "address", address, "session-id", sessionID, "took", d)
		},
		OperationStart: func(operation, datastore string) {
			logger.Debug("operation", "name", operation, "datastore", datastore)
		},
		OperationDone: func(operation, datastore string, err error, d time.Duration) {
			if err != nil {
				logger.Warn("operation failed", "name", operation, "datastore", datastore, "err", err)
				return
			}
			logger.Debug("operation done", "name", operation, "datastore", datastore, "took", d)
		},
		Disconnected: func(address string, sessionID uint64) {
			logger.Info("disconnected", "address", address, "session-id", sessionID)
		},
	}
}

// clientTraceHooks reports protocol engine events to logger.
func clientTraceHooks(logger *log.Logger) *client.ClientTrace {
	return &client.ClientTrace{
		HelloDone: func(target string, hello *common.HelloMessage) {
			logger.Debug("hello", "target", target, "session-id", hello.SessionID, "capabilities", len(hello.Capabilities))
		},
		ExecuteDone: func(target string, req common.Request, reply *common.RPCReply, err error, d time.Duration) {
			logger.Debug("rpc", "target", target, "err", err, "took", d)
		},
		Error: func(context, target string, err error) {
			logger.Error(context, "target", target, "err", err)
		},
		Closed: func(target string, err error) {
			logger.Debug("transport closed", "target", target, "err", err)
		},
	}
}
