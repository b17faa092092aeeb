package ncclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/damianoneill/ncclient/ncclient"
	"github.com/damianoneill/ncclient/ncclient/mocks"

	"github.com/golang/mock/gomock"
	assert "github.com/stretchr/testify/require"
)

func TestConnectMalformedPort(t *testing.T) {
	for _, port := range []string{"abc", "-1", "0", "65536", ""} {
		t.Run(port, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			dialer := mocks.NewMockDialer(mockCtrl)

			conn := ncclient.NewConnection("host", port, ncclient.WithDialer(dialer))
			err := conn.Connect(context.Background(), "u", "p")

			var cerr *ncclient.ConnectionError
			assert.ErrorAs(t, err, &cerr)
			assert.Contains(t, err.Error(), "port")
			assert.False(t, conn.IsConnected())
			assert.Nil(t, conn.Session())
		})
	}
}

func TestConnectFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	dialer := mocks.NewMockDialer(mockCtrl)
	cause := errors.New("ssh: unable to authenticate")
	dialer.EXPECT().Dial(gomock.Any(), "host:830", "u", "p").Return(nil, cause)

	conn := ncclient.NewConnection("host", "830", ncclient.WithDialer(dialer))
	err := conn.Connect(context.Background(), "u", "p")

	var cerr *ncclient.ConnectionError
	assert.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unable to authenticate")
	assert.False(t, conn.IsConnected())
}

func TestConnectAndDisconnect(t *testing.T) {
	conn, engine := newConnectedSession(t)
	assert.True(t, conn.IsConnected())
	assert.NotNil(t, conn.Session())
	assert.Equal(t, uint64(1), conn.Session().ID())

	engine.EXPECT().Close()
	conn.Disconnect()
	assert.False(t, conn.IsConnected())
	assert.Nil(t, conn.Session())

	conn.Disconnect()
	assert.False(t, conn.IsConnected())
}

func TestDisconnectNeverConnected(t *testing.T) {
	conn := ncclient.NewConnection("host", "830")
	assert.NotPanics(t, conn.Disconnect)
	assert.False(t, conn.IsConnected())
}

func TestConnectWhenConnected(t *testing.T) {
	conn, _ := newConnectedSession(t)

	err := conn.Connect(context.Background(), "admin", "admin")
	var cerr *ncclient.ConnectionError
	assert.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ncclient.ErrAlreadyConnected)
	assert.True(t, conn.IsConnected(), "Existing session should be retained")
}

func TestSessionInvalidatedByDisconnect(t *testing.T) {
	conn, engine := newConnectedSession(t)
	s := conn.Session()

	engine.EXPECT().Close()
	conn.Disconnect()

	assert.ErrorIs(t, s.Commit(), ncclient.ErrNotConnected)
	assert.Equal(t, uint64(0), s.ID())
	assert.Nil(t, s.Capabilities())
}

func TestReconnect(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	dialer := mocks.NewMockDialer(mockCtrl)
	first := mocks.NewMockEngine(mockCtrl)
	second := mocks.NewMockEngine(mockCtrl)
	first.EXPECT().ID().Return(uint64(1)).AnyTimes()
	second.EXPECT().ID().Return(uint64(2)).AnyTimes()
	gomock.InOrder(
		dialer.EXPECT().Dial(gomock.Any(), "host:830", "u", "p").Return(first, nil),
		first.EXPECT().Close(),
		dialer.EXPECT().Dial(gomock.Any(), "host:830", "u", "p").Return(second, nil),
	)

	conn := ncclient.NewConnection("host", "830", ncclient.WithDialer(dialer))
	assert.NoError(t, conn.Connect(context.Background(), "u", "p"))
	conn.Disconnect()
	assert.NoError(t, conn.Connect(context.Background(), "u", "p"))
	assert.Equal(t, uint64(2), conn.Session().ID())
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "router:830", ncclient.NewConnection("router", "830").Address())
	assert.Equal(t, "[::1]:830", ncclient.NewConnection("::1", "830").Address())
}

func TestConnectionTrace(t *testing.T) {
	var events []string
	trace := &ncclient.Trace{
		ConnectStart: func(address, username string) {
			events = append(events, "ConnectStart "+address+" "+username)
		},
		ConnectDone: func(address string, sessionID uint64, err error, d time.Duration) {
			events = append(events, "ConnectDone "+address)
		},
		OperationDone: func(operation, datastore string, err error, d time.Duration) {
			events = append(events, "OperationDone "+operation+" "+datastore)
		},
		Disconnected: func(address string, sessionID uint64) {
			events = append(events, "Disconnected "+address)
		},
	}

	mockCtrl := gomock.NewController(t)
	dialer := mocks.NewMockDialer(mockCtrl)
	engine := mocks.NewMockEngine(mockCtrl)
	engine.EXPECT().ID().Return(uint64(3)).AnyTimes()
	dialer.EXPECT().Dial(gomock.Any(), "host:830", "u", "p").Return(engine, nil)
	engine.EXPECT().Lock("candidate").Return(nil)
	engine.EXPECT().Close()

	conn := ncclient.NewConnection("host", "830", ncclient.WithDialer(dialer))
	assert.NoError(t, conn.Connect(ncclient.WithTrace(context.Background(), trace), "u", "p"))
	assert.NoError(t, conn.Session().Lock(ncclient.Candidate))
	conn.Disconnect()

	assert.Equal(t, []string{
		"ConnectStart host:830 u",
		"ConnectDone host:830",
		"OperationDone lock candidate",
		"Disconnected host:830",
	}, events)
}

func TestResolveConfig(t *testing.T) {
	cfg := ncclient.ResolveConfig(nil)
	assert.Equal(t, 5, cfg.SetupTimeoutSecs)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	assert.NotNil(t, cfg.HostKeyCallback)
	assert.False(t, cfg.DisableChunkedCodec)

	cfg = ncclient.ResolveConfig(&ncclient.Config{SetupTimeoutSecs: 20, DisableChunkedCodec: true})
	assert.Equal(t, 20, cfg.SetupTimeoutSecs)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	assert.True(t, cfg.DisableChunkedCodec)
}

func newConnectedSession(t *testing.T) (*ncclient.Connection, *mocks.MockEngine) {
	mockCtrl := gomock.NewController(t)
	dialer := mocks.NewMockDialer(mockCtrl)
	engine := mocks.NewMockEngine(mockCtrl)
	engine.EXPECT().ID().Return(uint64(1)).AnyTimes()
	dialer.EXPECT().Dial(gomock.Any(), "device:830", "admin", "admin").Return(engine, nil)

	conn := ncclient.NewConnection("device", "830", ncclient.WithDialer(dialer))
	assert.NoError(t, conn.Connect(context.Background(), "admin", "admin"))
	return conn, engine
}
