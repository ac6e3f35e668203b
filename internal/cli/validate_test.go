package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"time"

	"github.com/dans-knaw/bagpack-validate/internal/client"
	"github.com/dans-knaw/bagpack-validate/internal/poller"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const jobID = "550e8400-e29b-41d4-a716-446655440000"

// fakeService plays the validation service: it accepts one submission and
// answers status queries from a script.
type fakeService struct {
	mu sync.Mutex

	submitStatus int
	submitBody   string
	noLocation   bool
	statuses     []string

	bagLocations []string
	polls        int
	requestIDs   []string
}

func (f *fakeService) handler(serverURL func() string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /validate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var cmd client.ValidateCommand
		_ = json.NewDecoder(r.Body).Decode(&cmd)
		f.bagLocations = append(f.bagLocations, cmd.BagLocation)
		f.requestIDs = append(f.requestIDs, r.Header.Get("X-Request-Id"))

		if !f.noLocation {
			w.Header().Set("Location", serverURL()+"/validate/"+jobID)
		}
		status := f.submitStatus
		if status == 0 {
			status = http.StatusAccepted
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(f.submitBody))
	})
	mux.HandleFunc("GET /validate/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.requestIDs = append(f.requestIDs, r.Header.Get("X-Request-Id"))
		if r.PathValue("id") != jobID || f.polls >= len(f.statuses) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(f.statuses[f.polls]))
		f.polls++
	})
	return mux
}

var _ = Describe("validate command", func() {
	var (
		service *fakeService
		server  *httptest.Server
		options *ValidateOptions
		stdout  *bytes.Buffer
		stderr  *bytes.Buffer
		sleeps  []time.Duration
		bagPath string
	)

	BeforeEach(func() {
		for _, key := range []string{"BAGPACK_VALIDATE_SERVER_URL", "BAGPACK_VALIDATE_LOG_LEVEL", "BAGPACK_VALIDATE_POLL_INTERVAL"} {
			GinkgoT().Setenv(key, "")
		}

		service = &fakeService{}
		server = httptest.NewServer(service.handler(func() string { return server.URL }))
		DeferCleanup(server.Close)

		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
		sleeps = nil
		bagPath = filepath.Join(GinkgoT().TempDir(), "bag-1")

		options = DefaultValidateOptions()
		options.ConfigFilePath = filepath.Join(GinkgoT().TempDir(), "missing.yaml")
		options.sleeper = func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}
	})

	run := func(args ...string) error {
		cmd := newCmdValidate(options)
		cmd.SetOut(stdout)
		cmd.SetErr(stderr)
		cmd.SetArgs(append([]string{"--server-url", server.URL}, args...))
		return cmd.ExecuteContext(context.Background())
	}

	It("waits for the job and prints the result", func() {
		service.statuses = []string{
			`{"status":"PENDING"}`,
			`{"status":"RUNNING"}`,
			`{"status":"DONE","result":{"isCompliant":true}}`,
		}

		err := run(bagPath, "--poll-interval", "200")

		Expect(err).To(BeNil())
		Expect(service.bagLocations).To(Equal([]string{bagPath}))
		Expect(service.polls).To(Equal(3))
		Expect(sleeps).To(Equal([]time.Duration{200 * time.Millisecond, 200 * time.Millisecond}))
		Expect(stdout.String()).To(Equal("{\n  \"isCompliant\": true\n}\n"))
		Expect(stderr.String()).To(ContainSubstring("Validation job submitted. Status URL: " + server.URL + "/validate/" + jobID))
		Expect(stderr.String()).To(ContainSubstring("Waiting for validation to complete..."))
		Expect(stderr.String()).To(ContainSubstring("Status: PENDING\nStatus: RUNNING\nStatus: DONE\n"))
		Expect(stderr.String()).To(ContainSubstring("Validation completed successfully."))
	})

	It("sends one request id for the whole invocation", func() {
		service.statuses = []string{`{"status":"RUNNING"}`, `{"status":"DONE","result":{}}`}

		Expect(run(bagPath)).To(Succeed())

		Expect(service.requestIDs).To(HaveLen(3))
		Expect(service.requestIDs[0]).NotTo(BeEmpty())
		Expect(service.requestIDs).To(HaveEach(service.requestIDs[0]))
	})

	It("uses the default poll interval", func() {
		service.statuses = []string{`{"status":"RUNNING"}`, `{"status":"DONE","result":{}}`}

		Expect(run(bagPath)).To(Succeed())
		Expect(sleeps).To(Equal([]time.Duration{client.DefaultPollInterval}))
	})

	It("prints the result as yaml", func() {
		service.statuses = []string{`{"status":"DONE","result":{"isCompliant":false,"ruleViolations":[{"rule":"manifest"}]}}`}

		Expect(run(bagPath, "-o", "yaml")).To(Succeed())
		Expect(stdout.String()).To(Equal("isCompliant: false\nruleViolations:\n- rule: manifest\n"))
	})

	It("returns the status url without polling in no-wait mode", func() {
		service.statuses = []string{`{"status":"DONE","result":{}}`}

		Expect(run(bagPath, "--no-wait")).To(Succeed())

		Expect(stdout.String()).To(Equal(server.URL + "/validate/" + jobID + "\n"))
		Expect(service.polls).To(Equal(0))
		Expect(sleeps).To(BeEmpty())
	})

	It("reports a failed job", func() {
		service.statuses = []string{`{"status":"FAILED","error":"checksum mismatch"}`}

		err := run(bagPath)

		var failed *poller.ErrJobFailed
		Expect(errors.As(err, &failed)).To(BeTrue())
		Expect(Diagnostic(err)).To(Equal("Validation failed: checksum mismatch"))
		Expect(service.polls).To(Equal(1))
		Expect(sleeps).To(BeEmpty())
		Expect(stdout.String()).To(BeEmpty())
	})

	It("stops on an unknown status", func() {
		service.statuses = []string{`{"status":"RUNNING"}`, `{"status":"CANCELLED"}`, `{"status":"DONE"}`}

		err := run(bagPath)

		Expect(Diagnostic(err)).To(Equal("Unknown status: CANCELLED"))
		Expect(service.polls).To(Equal(2))
		Expect(stdout.String()).To(BeEmpty())
	})

	It("fails without polling when the location is missing", func() {
		service.noLocation = true
		service.statuses = []string{`{"status":"DONE","result":{}}`}

		err := run(bagPath)

		var malformed *poller.ErrMalformedLocator
		Expect(errors.As(err, &malformed)).To(BeTrue())
		Expect(service.polls).To(Equal(0))
		Expect(stdout.String()).To(BeEmpty())
	})

	It("prints the result of a synchronous service", func() {
		service.noLocation = true
		service.submitStatus = http.StatusOK
		service.submitBody = `{"isCompliant":true}`

		Expect(run(bagPath)).To(Succeed())

		Expect(stdout.String()).To(Equal("{\n  \"isCompliant\": true\n}\n"))
		Expect(service.polls).To(Equal(0))
	})

	It("fails when a status query fails", func() {
		service.statuses = []string{`{"status":"RUNNING"}`}

		err := run(bagPath)

		var pollErr *client.ErrPollTransport
		Expect(errors.As(err, &pollErr)).To(BeTrue())
		Expect(Diagnostic(err)).To(HavePrefix("Validation failed: "))
		Expect(service.polls).To(Equal(1))
		Expect(stdout.String()).To(BeEmpty())
	})

	It("fails when the submission is rejected", func() {
		service.submitStatus = http.StatusInternalServerError

		err := run(bagPath)

		var submitErr *client.ErrSubmissionTransport
		Expect(errors.As(err, &submitErr)).To(BeTrue())
		Expect(service.polls).To(Equal(0))
	})

	It("submits an absolute bag path", func() {
		service.statuses = []string{`{"status":"DONE","result":{}}`}

		Expect(run("relative/bag", "--no-wait")).To(Succeed())

		Expect(service.bagLocations).To(HaveLen(1))
		Expect(filepath.IsAbs(service.bagLocations[0])).To(BeTrue())
		Expect(service.bagLocations[0]).To(HaveSuffix(filepath.Join("relative", "bag")))
	})

	DescribeTable("rejects invalid options before submitting",
		func(args []string, message string) {
			err := run(append([]string{bagPath}, args...)...)

			Expect(err).To(MatchError(ContainSubstring(message)))
			Expect(service.bagLocations).To(BeEmpty())
		},
		Entry("zero poll interval", []string{"--poll-interval", "0"}, "poll interval must be positive"),
		Entry("unknown output", []string{"-o", "xml"}, "output format must be one of"),
		Entry("bad poll interval", []string{"-i", "soon"}, "invalid duration"),
	)
})

var _ = Describe("Diagnostic", func() {
	It("prints other errors as is", func() {
		Expect(Diagnostic(errors.New("boom"))).To(Equal("Error: boom"))
	})

	It("explains a missing locator", func() {
		err := poller.NewErrMalformedLocator("", "no Location header in response")
		Expect(Diagnostic(err)).To(Equal("Error: malformed status locator: no Location header in response"))
	})
})
