package ncclient

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Connection owns the lifecycle of the connection to one device, and the single session established over it.
// A Connection is not safe for concurrent use.
type Connection struct {
	host, port string
	config     *Config
	dialer     Dialer
	trace      *Trace
	session    *Session
}

// Option configures a Connection.
type Option func(*Connection)

// WithConfig defines the configuration used to establish the connection.
// Unspecified values take their defaults.
func WithConfig(cfg *Config) Option {
	return func(c *Connection) {
		c.config = cfg
	}
}

// WithDialer replaces the ssh dialer used to establish the engine session.
func WithDialer(d Dialer) Option {
	return func(c *Connection) {
		c.dialer = d
	}
}

// NewConnection defines a disconnected connection to the device at host and port.
// The port is validated by Connect.
func NewConnection(host, port string, opts ...Option) *Connection {
	c := &Connection{host: host, port: port, trace: NoOpLoggingHooks}
	for _, opt := range opts {
		opt(c)
	}
	c.config = ResolveConfig(c.config)
	if c.dialer == nil {
		c.dialer = &sshDialer{config: c.config}
	}
	return c
}

// Address delivers the host:port address of the device.
func (c *Connection) Address() string {
	return net.JoinHostPort(c.host, c.port)
}

// Connect authenticates with the device and establishes the connection's session.
// Any failure is reported as a *ConnectionError, and leaves the connection disconnected.
// Trace hooks carried by ctx observe the connection until it is disconnected.
func (c *Connection) Connect(ctx context.Context, username, password string) (err error) {
	if c.session != nil {
		return &ConnectionError{Message: "failed to connect to " + c.Address(), Err: ErrAlreadyConnected}
	}

	c.trace = ContextTrace(ctx)
	c.trace.ConnectStart(c.Address(), username)
	var session *Session
	defer func(begin time.Time) {
		c.trace.ConnectDone(c.Address(), session.ID(), err, time.Since(begin))
	}(time.Now())

	if err = validatePort(c.port); err != nil {
		return &ConnectionError{Message: "failed to read port number", Err: err}
	}

	engine, err := c.dialer.Dial(ctx, c.Address(), username, password)
	if err != nil {
		return &ConnectionError{Message: "failed to connect to " + c.Address(), Err: err}
	}

	session = &Session{engine: engine, trace: c.trace}
	c.session = session
	return nil
}

// Disconnect releases the session, if any. It is safe to call on a connection that is not connected.
func (c *Connection) Disconnect() {
	if c.session == nil {
		return
	}
	s := c.session
	c.session = nil

	id := s.ID()
	engine := s.engine
	s.engine = nil
	engine.Close()
	c.trace.Disconnected(c.Address(), id)
}

// IsConnected reports whether the connection holds an established session.
func (c *Connection) IsConnected() bool {
	return c.session != nil
}

// Session delivers the connection's session, or nil if the connection is not connected.
// Operations on a nil session fail with ErrNotConnected.
func (c *Connection) Session() *Session {
	return c.session
}

func validatePort(port string) error {
	p, err := strconv.Atoi(port)
	if err != nil {
		return errors.Errorf("port %q is not a number", port)
	}
	if p < 1 || p > 65535 {
		return errors.Errorf("port %d is out of range", p)
	}
	return nil
}
