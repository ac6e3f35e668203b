package client

import "fmt"

// ErrSubmissionTransport is returned when the validation request could not be
// delivered or the service refused it.
type ErrSubmissionTransport struct {
	error
}

func NewErrSubmissionTransport(err error) *ErrSubmissionTransport {
	return &ErrSubmissionTransport{fmt.Errorf("submitting validation request: %w", err)}
}

func (e *ErrSubmissionTransport) Unwrap() error {
	return e.error
}

// ErrPollTransport is returned when a status query fails before a status
// could be read from the response.
type ErrPollTransport struct {
	error
}

func NewErrPollTransport(err error) *ErrPollTransport {
	return &ErrPollTransport{fmt.Errorf("querying validation status: %w", err)}
}

func (e *ErrPollTransport) Unwrap() error {
	return e.error
}
