package ncclient

import "github.com/pkg/errors"

var (
	// ErrNotConnected is the cause of any operation attempted without an established session.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is the cause of a connect attempt on a connection that already holds a session.
	ErrAlreadyConnected = errors.New("already connected")
)

// ConnectionError reports a failure to establish a connection.
type ConnectionError struct {
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Cause supports github.com/pkg/errors.Cause.
func (e *ConnectionError) Cause() error { return e.Err }

// OperationError reports the failure of a session operation.
// Datastore is empty for operations that do not target a datastore.
type OperationError struct {
	Operation string
	Datastore string
	Err       error
}

func (e *OperationError) Error() string {
	op := e.Operation
	if e.Datastore != "" {
		op += " " + e.Datastore
	}
	return op + " failed: " + e.Err.Error()
}

func (e *OperationError) Unwrap() error { return e.Err }

// Cause supports github.com/pkg/errors.Cause.
func (e *OperationError) Cause() error { return e.Err }
