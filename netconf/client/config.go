package client

import (
	"time"

	"github.com/damianoneill/ncclient/netconf/common"

	"github.com/imdario/mergo"
)

// Config defines properties that configure netconf session behaviour.
type Config struct {
	// SetupTimeoutSecs bounds the wait for the server hello.
	SetupTimeoutSecs int
	// DisableChunkedCodec keeps the session on end-of-message framing, by not advertising base:1.1.
	DisableChunkedCodec bool
}

// DefaultConfig holds the values used for any Config field left unset.
var DefaultConfig = &Config{
	SetupTimeoutSecs: 5,
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

func (c *Config) setupTimeout() time.Duration {
	return time.Duration(c.SetupTimeoutSecs) * time.Second
}

func (c *Config) capabilities() []string {
	if c.DisableChunkedCodec {
		return common.Base10Capabilities
	}
	return common.DefaultCapabilities
}
