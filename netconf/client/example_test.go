package client_test

import (
	"context"
	"fmt"

	"github.com/damianoneill/ncclient/netconf/client"
	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/testserver"

	"golang.org/x/crypto/ssh"
)

func ExampleNewRPCSession() {
	ts := testserver.NewTestNetconfServer(nil)
	defer ts.Close()

	sshcfg := &ssh.ClientConfig{
		User:            testserver.TestUserName,
		Auth:            []ssh.AuthMethod{ssh.Password(testserver.TestPassword)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint: gosec
	}

	s, err := client.NewRPCSession(context.Background(), sshcfg, fmt.Sprintf("localhost:%d", ts.Port()))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer s.Close()

	reply, err := s.Execute(common.Request(`<get><top xmlns="urn:example"/></get>`))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(reply.Data)

	// Output: <data><top xmlns="urn:example"/></data>
}
