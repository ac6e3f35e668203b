package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dans-knaw/bagpack-validate/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	command := NewBagpackValidateCommand()
	if err := command.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, cli.Diagnostic(err))
		os.Exit(1)
	}
	stop()
}

// NewBagpackValidateCommand returns the validate command as the root, so
// "bagpack-validate PATH" validates a bag directly.
func NewBagpackValidateCommand() *cobra.Command {
	cmd := cli.NewCmdValidate()
	cmd.Use = "bagpack-validate PATH"
	cmd.Short = "Command-line client for validating BagPacks"
	cmd.SilenceErrors = true

	cmd.AddCommand(cli.NewCmdVersion())
	cmd.AddCommand(cli.NewCmdConfig())

	return cmd
}
