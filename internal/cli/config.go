package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dans-knaw/bagpack-validate/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func NewCmdConfig() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the client configuration",
	}
	cmd.AddCommand(NewCmdConfigInit())
	return cmd
}

type ConfigInitOptions struct {
	ConfigFilePath string
	ServerUrl      string

	stderr io.Writer
}

func DefaultConfigInitOptions() *ConfigInitOptions {
	return &ConfigInitOptions{
		ConfigFilePath: client.DefaultClientConfigPath(),
		ServerUrl:      client.DefaultServer,
	}
}

func NewCmdConfigInit() *cobra.Command {
	o := DefaultConfigInitOptions()
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a client configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.stderr = cmd.ErrOrStderr()
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ConfigInitOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path of the configuration file to write")
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the validation service")
}

func (o *ConfigInitOptions) Run(ctx context.Context, args []string) error {
	if err := client.WriteConfig(o.ConfigFilePath, o.ServerUrl); err != nil {
		return err
	}
	fmt.Fprintf(o.stderr, "Configuration written to %s\n", o.ConfigFilePath)
	return nil
}
