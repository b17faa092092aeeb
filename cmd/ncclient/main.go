// Command ncclient is an interactive NETCONF client.
//
//	ncclient <host> <port> <username> <password>
//	ncclient exec <host> <port> <username> <password> <command...>
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
