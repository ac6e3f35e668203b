package poller

import (
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Handle identifies a validation job on the service.
type Handle struct {
	// Locator is the status URL as returned by the service.
	Locator string
	ID      uuid.UUID
}

func (h Handle) String() string {
	return h.ID.String()
}

// ExtractHandle takes the job identifier from the last path segment of locator,
// e.g. "http://localhost:20375/validate/550e8400-e29b-41d4-a716-446655440000".
func ExtractHandle(locator string) (Handle, error) {
	if strings.TrimSpace(locator) == "" {
		return Handle{}, NewErrMalformedLocator("", "no locator returned by the service")
	}

	u, err := url.Parse(locator)
	if err != nil {
		return Handle{}, NewErrMalformedLocator(locator, err.Error())
	}

	p := strings.TrimSuffix(u.Path, "/")
	if p == "" {
		return Handle{}, NewErrMalformedLocator(locator, "no path segments")
	}

	segment := path.Base(p)
	id, err := uuid.Parse(segment)
	if err != nil {
		return Handle{}, NewErrMalformedLocator(locator, "last path segment "+segment+" is not a job id")
	}

	return Handle{Locator: locator, ID: id}, nil
}
