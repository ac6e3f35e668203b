package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dans-knaw/bagpack-validate/internal/client"
	"github.com/dans-knaw/bagpack-validate/internal/poller"
	"sigs.k8s.io/yaml"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

// formatResult pretty-prints a validation result.
func formatResult(result json.RawMessage, format string) ([]byte, error) {
	if len(bytes.TrimSpace(result)) == 0 {
		result = json.RawMessage("null")
	}

	var buf bytes.Buffer
	switch format {
	case yamlFormat:
		marshalled, err := yaml.JSONToYAML(result)
		if err != nil {
			return nil, fmt.Errorf("marshalling result: %w", err)
		}
		buf.Write(marshalled)
	default:
		if err := json.Indent(&buf, result, "", "  "); err != nil {
			return nil, fmt.Errorf("marshalling result: %w", err)
		}
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// Diagnostic turns an error returned by a command into the line printed on
// standard error before exiting.
func Diagnostic(err error) string {
	var (
		jobFailed     *poller.ErrJobFailed
		unknownStatus *poller.ErrUnrecognizedStatus
		malformed     *poller.ErrMalformedLocator
		submitErr     *client.ErrSubmissionTransport
		pollErr       *client.ErrPollTransport
	)
	switch {
	case errors.As(err, &jobFailed):
		return "Validation failed: " + jobFailed.Description
	case errors.As(err, &unknownStatus):
		return "Unknown status: " + unknownStatus.Raw
	case errors.As(err, &malformed):
		return "Error: " + malformed.Error()
	case errors.As(err, &submitErr), errors.As(err, &pollErr):
		return "Validation failed: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
