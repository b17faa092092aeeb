package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/damianoneill/ncclient/netconf/testserver"

	assert "github.com/stretchr/testify/require"
)

const routerConfig = `<system xmlns="urn:example"><hostname>router</hostname></system>`

func newDevice(t *testing.T) (*testserver.TestNCServer, *testserver.Device) {
	d := testserver.NewDevice().WithConfig(testserver.Running, routerConfig)
	ts := testserver.NewTestNetconfServer(t).WithDevice(d)
	t.Cleanup(ts.Close)
	return ts, d
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func execArgs(ts *testserver.TestNCServer, command ...string) []string {
	args := []string{"exec", "localhost", strconv.Itoa(ts.Port()), testserver.TestUserName, testserver.TestPassword}
	return append(args, command...)
}

func TestExecGetConfig(t *testing.T) {
	ts, _ := newDevice(t)

	stdout, _, err := run(t, execArgs(ts, "get-config")...)
	assert.NoError(t, err)
	assert.Equal(t, routerConfig+"\n", stdout)
}

func TestExecCopyConfig(t *testing.T) {
	ts, d := newDevice(t)

	stdout, _, err := run(t, execArgs(ts, "copy-config", "startup", `<boot xmlns="urn:example"/>`)...)
	assert.NoError(t, err)
	assert.Equal(t, "ok\n", stdout)
	assert.Equal(t, `<boot xmlns="urn:example"/>`, d.Config(testserver.Startup))
}

func TestExecDatastoreFromEnvironment(t *testing.T) {
	ts, d := newDevice(t)
	t.Setenv("NCCLIENT_DATASTORE", "candidate")

	_, _, err := run(t, execArgs(ts, "edit-config", `<system xmlns="urn:example"><hostname>edge</hostname></system>`)...)
	assert.NoError(t, err)
	assert.Equal(t, `<system xmlns="urn:example"><hostname>edge</hostname></system>`, d.Config(testserver.Candidate))
	assert.Equal(t, routerConfig, d.Config(testserver.Running))
}

func TestExecDatastoreFlag(t *testing.T) {
	ts, d := newDevice(t)
	t.Setenv("NCCLIENT_DATASTORE", "candidate")

	_, _, err := run(t, append([]string{"--datastore", "startup"}, execArgs(ts, "copy-config", routerConfig)...)...)
	assert.NoError(t, err)
	assert.Equal(t, routerConfig, d.Config(testserver.Startup))
}

func TestExecConfigFile(t *testing.T) {
	ts, d := newDevice(t)
	file := filepath.Join(t.TempDir(), "ncclient.yaml")
	assert.NoError(t, os.WriteFile(file, []byte("datastore: candidate\nlog-level: debug\n"), 0o600))

	_, stderr, err := run(t, append([]string{"--config", file}, execArgs(ts, "lock")...)...)
	assert.NoError(t, err)
	assert.NotZero(t, d.LockHolder(testserver.Candidate))
	assert.Contains(t, stderr, "connected")
}

func TestExecFailures(t *testing.T) {
	ts, _ := newDevice(t)

	tests := []struct {
		name   string
		args   []string
		expect string
	}{
		{"UnknownCommand", execArgs(ts, "frobnicate"), "unknown command"},
		{"OperationFailure", execArgs(ts, "unlock"), "unlock running failed"},
		{"MalformedConfig", execArgs(ts, "edit-config", "<system>"), "invalid configuration"},
		{"BadPort", []string{"exec", "localhost", "port", "u", "p", "get"}, "failed to read port number"},
		{"BadDatastore", append([]string{"--datastore", "intended"}, execArgs(ts, "get")...), "invalid datastore"},
		{"BadLogLevel", append([]string{"--log-level", "loud"}, execArgs(ts, "get")...), "invalid log level"},
		{"MissingKnownHosts", append([]string{"--known-hosts", "/nonexistent/known_hosts"}, execArgs(ts, "get")...), "failed to load known hosts"},
		{"MissingConfigFile", append([]string{"--config", "/nonexistent/ncclient.yaml"}, execArgs(ts, "get")...), "invalid configuration"},
		{"AuthenticationFailure", []string{"exec", "localhost", strconv.Itoa(ts.Port()), testserver.TestUserName, "wrong", "get"}, "failed to connect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := run(t, tt.args...)
			assert.Error(t, err)
			assert.Contains(t, stderr, "error: ")
			assert.Contains(t, stderr, tt.expect)
		})
	}
}

func TestConnectFailureReportedOnce(t *testing.T) {
	ts, _ := newDevice(t)

	_, stderr, err := run(t, "exec", "localhost", strconv.Itoa(ts.Port()), testserver.TestUserName, "wrong", "get")
	assert.Error(t, err)
	assert.Equal(t, 1, strings.Count(stderr, "failed to connect"), stderr)
}

func TestUsage(t *testing.T) {
	_, _, err := run(t, "localhost")
	assert.Error(t, err)

	_, _, err = run(t, "exec", "localhost", "830", "u", "p")
	assert.Error(t, err)
}
