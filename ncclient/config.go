package ncclient

import (
	"time"

	"github.com/damianoneill/ncclient/netconf/client"

	"github.com/imdario/mergo"
	"golang.org/x/crypto/ssh"
)

// Config defines properties that configure how a connection is established.
type Config struct {
	// SetupTimeoutSecs is the time in seconds to wait for the hello message from the device.
	SetupTimeoutSecs int
	// DialTimeout bounds the establishment of the ssh connection.
	DialTimeout time.Duration
	// HostKeyCallback verifies the device host key.
	HostKeyCallback ssh.HostKeyCallback
	// DisableChunkedCodec restricts the session to end-of-message framing.
	DisableChunkedCodec bool
}

// DefaultConfig holds the values used for any Config field left unset.
// Host keys are not verified unless a HostKeyCallback is supplied.
var DefaultConfig = &Config{
	SetupTimeoutSecs: 5,
	DialTimeout:      10 * time.Second,
	HostKeyCallback:  ssh.InsecureIgnoreHostKey(), //nolint:gosec
}

// ResolveConfig delivers a copy of cfg, with defaults applied to unspecified values.
func ResolveConfig(cfg *Config) *Config {
	resolved := Config{}
	if cfg != nil {
		resolved = *cfg
	}
	_ = mergo.Merge(&resolved, DefaultConfig)
	return &resolved
}

func (c *Config) sshConfig(username, password string) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User: username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: c.HostKeyCallback,
		Timeout:         c.DialTimeout,
	}
}

func (c *Config) engineConfig() *client.Config {
	return &client.Config{SetupTimeoutSecs: c.SetupTimeoutSecs, DisableChunkedCodec: c.DisableChunkedCodec}
}
