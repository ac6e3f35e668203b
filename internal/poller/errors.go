package poller

import (
	"fmt"
)

// ErrMalformedLocator is returned when the status locator of a submitted job
// is missing or does not end in a job identifier.
type ErrMalformedLocator struct {
	error
	Locator string
}

func NewErrMalformedLocator(locator string, reason string) *ErrMalformedLocator {
	if locator == "" {
		return &ErrMalformedLocator{error: fmt.Errorf("malformed status locator: %s", reason)}
	}
	return &ErrMalformedLocator{error: fmt.Errorf("malformed status locator %q: %s", locator, reason), Locator: locator}
}

// ErrJobFailed is returned when the service reports the job as FAILED.
type ErrJobFailed struct {
	error
	Description string
}

func NewErrJobFailed(description string) *ErrJobFailed {
	return &ErrJobFailed{error: fmt.Errorf("validation job failed: %s", description), Description: description}
}

// ErrUnrecognizedStatus is returned for a status value the client does not know.
type ErrUnrecognizedStatus struct {
	error
	Raw string
}

func NewErrUnrecognizedStatus(raw string) *ErrUnrecognizedStatus {
	return &ErrUnrecognizedStatus{error: fmt.Errorf("unknown status: %s", raw), Raw: raw}
}
