package client

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dans-knaw/bagpack-validate/internal/util"
	"github.com/kelseyhightower/envconfig"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/yaml"
)

const (
	// EnvPrefix is the prefix of the environment variables overriding the config file.
	EnvPrefix = "BAGPACK_VALIDATE"
	// DefaultServer is where the validation service listens when run locally.
	DefaultServer = "http://localhost:20375"
	// DefaultPollInterval is the time between two status queries of a running job.
	DefaultPollInterval = 1000 * time.Millisecond
	// DefaultTimeout bounds a single request to the validation service.
	DefaultTimeout = 30 * time.Second
)

// Config holds the information needed to connect to the validation service
type Config struct {
	Service Service `json:"service"`

	// PollInterval is the time to wait between two status queries
	PollInterval util.Duration `json:"poll-interval,omitempty"`
	// LogLevel is one of zap's level names: "debug", "info", "warn", "error"...
	LogLevel string `json:"log-level,omitempty"`

	// baseDir is used to resolve relative paths
	// If baseDir is empty, the current working directory is used.
	baseDir string `json:"-"`
}

// Service contains information how to connect to the validation service.
type Service struct {
	// Server is the base URL of the validation service (the part before /validate).
	Server string `json:"server"`
	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout util.Duration `json:"timeout,omitempty"`
}

// envOverrides are read from BAGPACK_VALIDATE_* variables.
type envOverrides struct {
	ServerURL    string        `split_words:"true"`
	LogLevel     string        `split_words:"true"`
	PollInterval util.Duration `split_words:"true"`
}

func (c *Config) Equal(c2 *Config) bool {
	if c == c2 {
		return true
	}
	if c == nil || c2 == nil {
		return false
	}
	return c.Service.Equal(&c2.Service) &&
		c.PollInterval == c2.PollInterval &&
		c.LogLevel == c2.LogLevel
}

func (s *Service) Equal(s2 *Service) bool {
	if s == s2 {
		return true
	}
	if s == nil || s2 == nil {
		return false
	}
	return s.Server == s2.Server && s.Timeout == s2.Timeout
}

func (c *Config) SetBaseDir(baseDir string) {
	c.baseDir = baseDir
}

// ResolvePath makes p absolute, relative to the directory of the config file
// when one was read, or the current working directory otherwise.
func (c *Config) ResolvePath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	if c.baseDir != "" {
		return filepath.Join(c.baseDir, p), nil
	}
	return filepath.Abs(p)
}

func NewDefault() *Config {
	return &Config{
		Service: Service{
			Server:  DefaultServer,
			Timeout: util.NewDuration(DefaultTimeout),
		},
		PollInterval: util.NewDuration(DefaultPollInterval),
	}
}

// NewFromConfig returns a new validation service client from the given config.
func NewFromConfig(config *Config) (*ValidateClient, error) {
	httpClient, err := NewHTTPClientFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("NewFromConfig: creating HTTP client %w", err)
	}
	return NewValidateClient(config.Service.Server, httpClient), nil
}

// NewHTTPClientFromConfig returns a new HTTP Client from the given config.
func NewHTTPClientFromConfig(config *Config) (*http.Client, error) {
	httpClient := &http.Client{
		Timeout: config.Service.Timeout.Duration,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     false,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	return httpClient, nil
}

// DefaultClientConfigPath returns the default path to the client config file.
func DefaultClientConfigPath() string {
	return filepath.Join(homedir.HomeDir(), ".bagpack-validate", "client.yaml")
}

func ParseConfigFile(filename string) (*Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	config := NewDefault()
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	config.SetBaseDir(filepath.Dir(filename))
	return config, nil
}

// LoadConfig reads filename and applies the environment overrides on top of
// it. A missing file yields the defaults unless required is set, in which
// case it is an error. The result is not validated: callers apply their
// command-line overrides first and call Validate afterwards.
func LoadConfig(filename string, required bool) (*Config, error) {
	config, err := ParseConfigFile(filename)
	if err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		config = NewDefault()
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides the fields set through BAGPACK_VALIDATE_* variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if env.ServerURL != "" {
		c.Service.Server = env.ServerURL
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.PollInterval.Duration != 0 {
		c.PollInterval = env.PollInterval
	}
	return nil
}

// WriteConfig writes a client config file using the given parameters.
func WriteConfig(filename string, server string) error {
	config := NewDefault()
	config.Service.Server = server

	if err := config.Validate(); err != nil {
		return err
	}
	return config.Persist(filename)
}

func (c *Config) Persist(filename string) error {
	contents, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.WriteFile(filename, contents, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	validationErrors := make([]error, 0)
	validationErrors = append(validationErrors, validateService(c.Service)...)
	if c.PollInterval.Duration <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval.Duration))
	}
	if len(validationErrors) > 0 {
		return fmt.Errorf("invalid configuration: %v", utilerrors.NewAggregate(validationErrors).Error())
	}
	return nil
}

func validateService(service Service) []error {
	validationErrors := make([]error, 0)
	// Make sure the server is specified and well-formed
	if len(service.Server) == 0 {
		validationErrors = append(validationErrors, fmt.Errorf("no server found"))
	} else {
		u, err := url.Parse(service.Server)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: %w", service.Server, err))
		}
		if err == nil && len(u.Hostname()) == 0 {
			validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: no hostname", service.Server))
		}
	}
	if service.Timeout.Duration < 0 {
		validationErrors = append(validationErrors, fmt.Errorf("timeout must not be negative, got %s", service.Timeout.Duration))
	}
	return validationErrors
}
