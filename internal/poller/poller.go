// Package poller follows an asynchronous validation job until the service
// reports it DONE or FAILED.
//
// Status queries are strictly sequential: the next one is only sent after the
// previous result was read and the poll interval has passed. There is no
// retry on transport errors and no overall timeout; the caller stops the
// polling by cancelling the context, which leaves the job running on the
// service.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dans-knaw/bagpack-validate/internal/client"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusGetter queries the status of a job. It is implemented by client.ValidateClient.
type StatusGetter interface {
	GetValidationStatus(ctx context.Context, id uuid.UUID) (*client.StatusResponse, error)
}

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Observer is told about every status read from the service.
type Observer func(session *Session, status Status)

// Session is the state of one AwaitTerminal call.
type Session struct {
	Handle   Handle
	Interval time.Duration
	// Attempts is the number of status queries sent so far.
	Attempts int
	// Waited is the total time spent sleeping between queries.
	Waited time.Duration
}

type Poller struct {
	getter   StatusGetter
	interval time.Duration
	sleep    Sleeper
	observe  Observer
}

type Option func(*Poller)

// WithSleeper replaces the timer based sleep between two queries.
func WithSleeper(s Sleeper) Option {
	return func(p *Poller) {
		p.sleep = s
	}
}

func WithObserver(o Observer) Option {
	return func(p *Poller) {
		p.observe = o
	}
}

func New(getter StatusGetter, interval time.Duration, opts ...Option) *Poller {
	p := &Poller{
		getter:   getter,
		interval: interval,
		sleep:    Sleep,
		observe:  func(*Session, Status) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollOnce sends a single status query for the job.
func (p *Poller) PollOnce(ctx context.Context, h Handle) (Status, error) {
	resp, err := p.getter.GetValidationStatus(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	return StatusFromResponse(resp), nil
}

// AwaitTerminal polls the job until it is DONE, in which case the result is
// returned, or until it FAILED, reports a status this client does not know,
// a query fails or ctx is cancelled.
func (p *Poller) AwaitTerminal(ctx context.Context, h Handle) (json.RawMessage, error) {
	session := &Session{Handle: h, Interval: p.interval}
	logger := zap.S().Named("poller").With("job_id", h.ID)

	for {
		status, err := p.PollOnce(ctx, h)
		session.Attempts++
		if err != nil {
			logger.Debugw("status query failed", "attempt", session.Attempts, "error", err)
			return nil, fmt.Errorf("polling job %s: %w", h.ID, err)
		}
		p.observe(session, status)
		logger.Debugw("status received", "attempt", session.Attempts, "status", status.String())

		switch s := status.(type) {
		case Done:
			logger.Debugw("job done", "attempts", session.Attempts, "waited", session.Waited)
			return s.Result, nil
		case Failed:
			return nil, NewErrJobFailed(s.Error)
		case Pending, Running:
			if err := p.sleep(ctx, p.interval); err != nil {
				return nil, err
			}
			session.Waited += p.interval
		case Unknown:
			return nil, NewErrUnrecognizedStatus(s.Raw)
		default:
			return nil, NewErrUnrecognizedStatus(status.String())
		}
	}
}

// Sleep waits for d, returning early with the context error when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
