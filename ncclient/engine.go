package ncclient

import (
	"context"

	"github.com/damianoneill/ncclient/netconf/ops"
)

//go:generate mockgen -destination=mocks/mock_engine.go -package=mocks github.com/damianoneill/ncclient/ncclient Engine,Dialer

// Engine is the NETCONF protocol implementation that operations are issued to.
// It is satisfied by ops.OpSession.
type Engine interface {
	GetSubtree(filter interface{}, result interface{}) error
	GetConfigSubtree(filter interface{}, source string, result interface{}) error
	Lock(target string) error
	Unlock(target string) error
	EditConfigCfg(target string, config interface{}, options ...ops.EditOption) error
	CopyConfigCfg(target string, cfg interface{}) error
	Commit() error
	Discard() error
	Close()
	ID() uint64
	ServerCapabilities() []string
}

// Dialer establishes an authenticated engine session with the device at address.
type Dialer interface {
	Dial(ctx context.Context, address, username, password string) (Engine, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, address, username, password string) (Engine, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, address, username, password string) (Engine, error) {
	return f(ctx, address, username, password)
}

var _ Engine = ops.OpSession(nil)

// sshDialer establishes sessions over ssh, using the netconf subsystem.
type sshDialer struct {
	config *Config
}

func (d *sshDialer) Dial(ctx context.Context, address, username, password string) (Engine, error) {
	s, err := ops.NewSessionWithConfig(ctx, d.config.sshConfig(username, password), address, d.config.engineConfig())
	if err != nil {
		return nil, err
	}
	return s, nil
}
