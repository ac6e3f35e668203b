package cli

import (
	"github.com/dans-knaw/bagpack-validate/internal/client"
	"github.com/dans-knaw/bagpack-validate/pkg/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type GlobalOptions struct {
	ConfigFilePath string
	ServerUrl      string
	LogLevel       string

	config *client.Config
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: client.DefaultClientConfigPath(),
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client configuration file")
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the validation service, overrides the configuration file")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug, info, warn or error")
}

// Complete loads the configuration file, applies the environment and the
// command-line overrides and sets up logging.
func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	config, err := client.LoadConfig(o.ConfigFilePath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if o.ServerUrl != "" {
		config.Service.Server = o.ServerUrl
	}
	if o.LogLevel != "" {
		config.LogLevel = o.LogLevel
	}
	o.config = config

	zap.ReplaceGlobals(log.InitLog(log.ParseLevel(config.LogLevel)))
	zap.S().Debugw("configuration loaded", "file", o.ConfigFilePath, "server", config.Service.Server)
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return o.config.Validate()
}

func (o *GlobalOptions) Client() (*client.ValidateClient, error) {
	return client.NewFromConfig(o.config)
}
