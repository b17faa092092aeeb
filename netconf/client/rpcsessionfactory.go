package client

import (
	"context"

	"golang.org/x/crypto/ssh"
)

// NewRPCSession connects to target over ssh and establishes a netconf session with the default configuration.
func NewRPCSession(ctx context.Context, sshcfg *ssh.ClientConfig, target string) (Session, error) {
	return NewRPCSessionWithConfig(ctx, sshcfg, target, DefaultConfig)
}

// NewRPCSessionWithConfig connects to target over ssh and establishes a netconf session configured by cfg.
// Fields of cfg left unset take their DefaultConfig value.
func NewRPCSessionWithConfig(ctx context.Context, sshcfg *ssh.ClientConfig, target string, cfg *Config) (Session, error) {
	t, err := NewSSHTransport(ctx, sshcfg, target, "netconf")
	if err != nil {
		return nil, err
	}
	return NewSession(ctx, t, ResolveConfig(cfg))
}
