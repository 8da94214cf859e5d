// sessionctl is the operator CLI for accounts and sessions. Every command except
// hash-password reads the server's environment and talks to Postgres directly.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Administer riverside users and sessions",
		SilenceUsage:  true,
	}
	root.AddCommand(
		newHashPasswordCommand(),
		newUsersCommand(),
		newSessionsCommand(),
		newAuditCommand(),
	)
	return root
}
