package poller

import (
	"encoding/json"

	"github.com/dans-knaw/bagpack-validate/internal/client"
)

// Wire values of the job status.
const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

// Status is the state of a job at the time it was queried. It is one of
// Pending, Running, Done, Failed or Unknown.
type Status interface {
	// String returns the status as sent by the service.
	String() string
	// Terminal reports whether the job will not change state anymore.
	Terminal() bool

	isStatus()
}

type Pending struct{}

type Running struct{}

// Done carries the validation result.
type Done struct {
	Result json.RawMessage
}

// Failed carries the reason the service gave up on the job.
type Failed struct {
	Error string
}

// Unknown holds a status value this client does not understand.
type Unknown struct {
	Raw string
}

func (Pending) String() string { return StatusPending }
func (Running) String() string { return StatusRunning }
func (Done) String() string { return StatusDone }
func (Failed) String() string { return StatusFailed }
func (u Unknown) String() string {
	return u.Raw
}

func (Pending) Terminal() bool { return false }
func (Running) Terminal() bool { return false }
func (Done) Terminal() bool { return true }
func (Failed) Terminal() bool { return true }

// Unknown statuses end the polling as well, with an error.
func (Unknown) Terminal() bool { return true }

func (Pending) isStatus() {}
func (Running) isStatus() {}
func (Done) isStatus() {}
func (Failed) isStatus() {}
func (Unknown) isStatus() {}

// StatusFromResponse converts a status record into a Status.
func StatusFromResponse(resp *client.StatusResponse) Status {
	if resp == nil {
		return Unknown{}
	}
	switch resp.Status {
	case StatusPending:
		return Pending{}
	case StatusRunning:
		return Running{}
	case StatusDone:
		return Done{Result: resp.Result}
	case StatusFailed:
		return Failed{Error: resp.Error}
	default:
		return Unknown{Raw: resp.Status}
	}
}
