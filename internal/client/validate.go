package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dans-knaw/bagpack-validate/pkg/requestid"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	validatePath = "/validate"
	// LocationHeader carries the status locator of an asynchronous job.
	LocationHeader = "Location"
)

var commandValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateClient is an HTTP client for the BagPack validation service
type ValidateClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewValidateClient(baseURL string, httpClient *http.Client) *ValidateClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ValidateClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ValidateCommand asks the service to validate the bag found at BagLocation.
// The location is resolved on the server, so it must be a path the service can read.
type ValidateCommand struct {
	BagLocation string `json:"bagLocation" validate:"required"`
}

// SubmitResponse is the outcome of a submission. An asynchronous job is
// identified by Location; a service answering synchronously puts the
// validation result in Result instead.
type SubmitResponse struct {
	StatusCode int
	Location   string
	Result     json.RawMessage
}

// Async reports whether the service accepted the request as a background job.
func (r *SubmitResponse) Async() bool {
	return r.StatusCode == http.StatusAccepted || r.StatusCode == http.StatusCreated || r.Location != ""
}

// StatusResponse is the status record of a validation job.
type StatusResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Submit sends the validation request for the bag at bagLocation.
func (c *ValidateClient) Submit(ctx context.Context, bagLocation string) (*SubmitResponse, error) {
	cmd := ValidateCommand{BagLocation: bagLocation}
	if err := commandValidator.Struct(cmd); err != nil {
		return nil, NewErrSubmissionTransport(fmt.Errorf("invalid validate command: %w", err))
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, NewErrSubmissionTransport(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.baseURL+validatePath, bytes.NewBuffer(body))
	if err != nil {
		return nil, NewErrSubmissionTransport(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewErrSubmissionTransport(errors.Wrap(err, "failed to call validation service"))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewErrSubmissionTransport(errors.Wrap(err, "failed to read response body"))
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	default:
		return nil, NewErrSubmissionTransport(fmt.Errorf("validation service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))))
	}

	submitted := &SubmitResponse{
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get(LocationHeader),
	}
	if len(bytes.TrimSpace(bodyBytes)) > 0 {
		submitted.Result = bodyBytes
	}

	zap.S().Debugw("validation request submitted", "bag_location", bagLocation, "status_code", resp.StatusCode, "location", submitted.Location)
	return submitted, nil
}

// GetValidationStatus reads the status record of job id.
func (c *ValidateClient) GetValidationStatus(ctx context.Context, id uuid.UUID) (*StatusResponse, error) {
	url := fmt.Sprintf("%s%s/%s", c.baseURL, validatePath, id)

	httpReq, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewErrPollTransport(err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewErrPollTransport(errors.Wrap(err, "failed to call validation service"))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewErrPollTransport(errors.Wrap(err, "failed to read response body"))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewErrPollTransport(fmt.Errorf("validation service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))))
	}

	var status StatusResponse
	if err := json.Unmarshal(bodyBytes, &status); err != nil {
		return nil, NewErrPollTransport(fmt.Errorf("failed to decode response: %w", err))
	}

	return &status, nil
}

func (c *ValidateClient) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if reqID := requestid.FromContext(ctx); reqID != "" {
		httpReq.Header.Set(middleware.RequestIDHeader, reqID)
	}
	return httpReq, nil
}
