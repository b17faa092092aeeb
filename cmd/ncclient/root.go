package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/damianoneill/ncclient/internal/shell"
	"github.com/damianoneill/ncclient/ncclient"
	"github.com/damianoneill/ncclient/netconf/client"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/knownhosts"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ncclient <host> <port> <username> <password>",
		Short: "Interactive NETCONF client",
		Long: `ncclient opens a NETCONF session with a device and reads commands from the terminal.

Options may also be set with NCCLIENT_ environment variables (NCCLIENT_LOG_LEVEL, NCCLIENT_DATASTORE ...)
or in the yaml file named by --config.`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInteractive,
	}
	addSettingsFlags(root)

	root.AddCommand(&cobra.Command{
		Use:           "exec <host> <port> <username> <password> <command...>",
		Short:         "Run a single command and exit",
		Args:          cobra.MinimumNArgs(5),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runExec,
	})
	return root
}

func runInteractive(cmd *cobra.Command, args []string) error {
	sh, conn, logger, err := open(cmd, args)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	rl, err := shell.NewReadline(conn.Address(), os.Stdin, cmd.OutOrStdout())
	if err != nil {
		return report(logger, errors.Wrap(err, "failed to create readline"))
	}
	sh.SetOutput(rl.Stdout())
	return report(logger, sh.Run(cmd.Context(), rl))
}

func runExec(cmd *cobra.Command, args []string) error {
	command, err := shell.Parse(strings.Join(args[4:], " "))
	if err == nil && command == nil {
		err = errors.New("no command given")
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		return err
	}

	sh, conn, _, err := open(cmd, args)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	result, err := sh.Execute(command)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		return err
	}
	if result != "" {
		fmt.Fprintln(cmd.OutOrStdout(), result)
	}
	return nil
}

// open connects to the device named by args, delivering a shell bound to its session.
func open(cmd *cobra.Command, args []string) (*shell.Shell, *ncclient.Connection, *log.Logger, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, nil, reportf(cmd, "invalid configuration: %v", err)
	}
	logger, err := newLogger(cmd.ErrOrStderr(), s.LogLevel)
	if err != nil {
		return nil, nil, nil, reportf(cmd, "invalid log level: %v", err)
	}
	ds, err := ncclient.ParseDatastore(s.Datastore)
	if err != nil {
		return nil, nil, nil, reportf(cmd, "invalid datastore: %v", err)
	}

	cfg := &ncclient.Config{SetupTimeoutSecs: s.SetupTimeout}
	if s.KnownHosts != "" {
		if cfg.HostKeyCallback, err = knownhosts.New(s.KnownHosts); err != nil {
			return nil, nil, nil, reportf(cmd, "failed to load known hosts: %v", err)
		}
	} else {
		logger.Warn("host key of the device will not be verified")
	}

	ctx := ncclient.WithTrace(cmd.Context(), traceHooks(logger))
	ctx = client.WithClientTrace(ctx, clientTraceHooks(logger))

	conn := ncclient.NewConnection(args[0], args[1], ncclient.WithConfig(cfg))
	if err = conn.Connect(ctx, args[2], args[3]); err != nil {
		return nil, nil, nil, reportf(cmd, "%v", err)
	}
	return shell.New(conn.Session(), ds, cmd.OutOrStdout()), conn, logger, nil
}

func reportf(cmd *cobra.Command, format string, args ...interface{}) error {
	err := errors.Errorf(format, args...)
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	return err
}

func report(logger *log.Logger, err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shell ended", "err", err)
	}
	return err
}
