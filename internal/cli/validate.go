package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dans-knaw/bagpack-validate/internal/client"
	"github.com/dans-knaw/bagpack-validate/internal/poller"
	"github.com/dans-knaw/bagpack-validate/internal/util"
	"github.com/dans-knaw/bagpack-validate/pkg/requestid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

type ValidateOptions struct {
	GlobalOptions

	NoWait       bool
	PollInterval util.Duration
	Output       string

	stdout io.Writer
	stderr io.Writer
	// sleeper overrides the wait between two status queries, tests only
	sleeper poller.Sleeper
}

func DefaultValidateOptions() *ValidateOptions {
	return &ValidateOptions{
		GlobalOptions: DefaultGlobalOptions(),
		PollInterval:  util.NewDuration(client.DefaultPollInterval),
		Output:        jsonFormat,
	}
}

func NewCmdValidate() *cobra.Command {
	return newCmdValidate(DefaultValidateOptions())
}

func newCmdValidate(o *ValidateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate PATH",
		Short: "Validate a BagPack",
		Long: "Submits the bag at PATH to the validation service and waits for the result.\n" +
			"The result is printed on standard output, progress on standard error.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}

	o.Bind(cmd.Flags())
	return cmd
}

func (o *ValidateOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVarP(&o.NoWait, "no-wait", "n", o.NoWait, "Return immediately with the status URL instead of waiting for completion")
	fs.VarP(&o.PollInterval, "poll-interval", "i", "Poll interval when waiting, a duration such as 500ms or 2s; a bare number is taken as milliseconds")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format of the result. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *ValidateOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	if cmd.Flags().Changed("poll-interval") {
		o.config.PollInterval = o.PollInterval
	} else {
		o.PollInterval = o.config.PollInterval
	}
	o.stdout = cmd.OutOrStdout()
	o.stderr = cmd.ErrOrStderr()
	return nil
}

func (o *ValidateOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("must specify the path of the bag to validate")
	}
	if !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

func (o *ValidateOptions) Run(ctx context.Context, args []string) error {
	bagPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving bag path: %w", err)
	}

	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	ctx = requestid.Ensure(ctx)
	zap.S().Debugw("submitting validation request", "bag", bagPath, "request_id", requestid.FromContext(ctx))

	submitted, err := c.Submit(ctx, bagPath)
	if err != nil {
		return err
	}

	if submitted.Location == "" {
		// older services answer with the result right away
		if !submitted.Async() && submitted.Result != nil {
			return o.printResult(submitted.Result)
		}
		return poller.NewErrMalformedLocator("", "no Location header in response")
	}

	fmt.Fprintf(o.stderr, "Validation job submitted. Status URL: %s\n", submitted.Location)

	if o.NoWait {
		fmt.Fprintln(o.stdout, submitted.Location)
		return nil
	}

	handle, err := poller.ExtractHandle(submitted.Location)
	if err != nil {
		return err
	}

	fmt.Fprintln(o.stderr, "Waiting for validation to complete...")

	opts := []poller.Option{
		poller.WithObserver(func(_ *poller.Session, status poller.Status) {
			fmt.Fprintf(o.stderr, "Status: %s\n", status)
		}),
	}
	if o.sleeper != nil {
		opts = append(opts, poller.WithSleeper(o.sleeper))
	}

	result, err := poller.New(c, o.PollInterval.Duration, opts...).AwaitTerminal(ctx, handle)
	if err != nil {
		return err
	}

	return o.printResult(result)
}

func (o *ValidateOptions) printResult(result json.RawMessage) error {
	formatted, err := formatResult(result, o.Output)
	if err != nil {
		return err
	}
	fmt.Fprintln(o.stderr, "Validation completed successfully.")
	_, err = o.stdout.Write(formatted)
	return err
}
