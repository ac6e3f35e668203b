package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dans-knaw/bagpack-validate/pkg/version"
	"github.com/spf13/cobra"
)

type VersionOptions struct {
	Output string

	stdout io.Writer
}

func DefaultVersionOptions() *VersionOptions {
	return &VersionOptions{
		Output: "",
	}
}

func NewCmdVersion() *cobra.Command {
	o := DefaultVersionOptions()
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.stdout = cmd.OutOrStdout()
			return o.Run(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", o.Output, "Output format. One of: (json).")
	return cmd
}

func (o *VersionOptions) Run(ctx context.Context, args []string) error {
	versionInfo := version.Get()
	switch o.Output {
	case "":
		fmt.Fprintf(o.stdout, "bagpack-validate version: %s\n", versionInfo.String())
	case jsonFormat:
		marshalled, err := json.MarshalIndent(versionInfo, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling version: %w", err)
		}
		fmt.Fprintf(o.stdout, "%s\n", marshalled)
	default:
		return fmt.Errorf("output format must be %s", jsonFormat)
	}
	return nil
}
