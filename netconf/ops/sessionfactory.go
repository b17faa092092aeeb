package ops

import (
	"context"

	"github.com/damianoneill/ncclient/netconf/client"

	"golang.org/x/crypto/ssh"
)

// NewSession connects to target over ssh and delivers an OpSession with the default client configuration.
func NewSession(ctx context.Context, sshcfg *ssh.ClientConfig, target string) (OpSession, error) {
	return NewSessionWithConfig(ctx, sshcfg, target, client.DefaultConfig)
}

// NewSessionWithConfig connects to target over ssh and delivers an OpSession configured by cfg.
func NewSessionWithConfig(ctx context.Context, sshcfg *ssh.ClientConfig, target string, cfg *client.Config) (OpSession, error) {
	s, err := client.NewRPCSessionWithConfig(ctx, sshcfg, target, cfg)
	if err != nil {
		return nil, err
	}
	return NewOpSession(s), nil
}
