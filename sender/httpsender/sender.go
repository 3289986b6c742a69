// Package httpsender delivers agent documents to an HTTP collector.
//
// Every document is POSTed as a JSON object to the base URL plus a fixed
// path per message type. Any response status other than 2xx is a delivery
// error.
package httpsender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/jpalmerr/pulseagent"
)

// Default collector paths.
const (
	CheckInPath       = "/api/cmdb/checkIn"
	AppEventPath      = "/api/cmdb/app-event"
	ThreadDumpPath    = "/api/monitor/thread-dump"
	AppConfigDumpPath = "/api/monitor/app-config-dump"
)

const (
	defaultTimeout = 10 * time.Second

	// responses are drained for connection reuse, never interpreted
	maxResponseBodySize = 1 << 20 // 1MB

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Sender is a [pulseagent.Sender] that POSTs JSON to a collector.
type Sender struct {
	baseURL    string
	paths      map[pulseagent.MessageType]string
	timeout    time.Duration
	headers    map[string]string
	username   string
	password   string
	httpClient *http.Client
	useHTTP2   bool
}

// Option configures a [Sender].
type Option func(*Sender) error

// WithTimeout bounds each request. Defaults to 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		s.timeout = d
		return nil
	}
}

// WithBasicAuth sends HTTP basic credentials with every request.
func WithBasicAuth(username, password string) Option {
	return func(s *Sender) error {
		if username == "" {
			return fmt.Errorf("basic auth username cannot be empty")
		}
		s.username = username
		s.password = password
		return nil
	}
}

// WithHeader adds a request header. Can be called multiple times.
func WithHeader(key, value string) Option {
	return func(s *Sender) error {
		if key == "" {
			return fmt.Errorf("header name cannot be empty")
		}
		s.headers[key] = value
		return nil
	}
}

// WithPath overrides the collector path for one message type.
func WithPath(mt pulseagent.MessageType, path string) Option {
	return func(s *Sender) error {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("path %q must start with /", path)
		}
		s.paths[mt] = path
		return nil
	}
}

// WithHTTP2 enables HTTP/2 on the sender's transport for TLS collectors.
func WithHTTP2() Option {
	return func(s *Sender) error {
		s.useHTTP2 = true
		return nil
	}
}

// WithHTTPClient replaces the pooled client built by [New]. WithHTTP2 has no
// effect when a client is supplied.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) error {
		if c == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		s.httpClient = c
		return nil
	}
}

// New creates a [Sender] for the collector at baseURL. A trailing slash on
// baseURL is ignored.
//
// Connection pooling matches a long-lived background reporter:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 10 idle connections per host
//   - MaxConnsPerHost: 10 concurrent connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
func New(baseURL string, opts ...Option) (*Sender, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("base URL must start with http:// or https://")
	}

	s := &Sender{
		baseURL: baseURL,
		paths: map[pulseagent.MessageType]string{
			pulseagent.MessageCheckIn:       CheckInPath,
			pulseagent.MessageAppEvent:      AppEventPath,
			pulseagent.MessageThreadDump:    ThreadDumpPath,
			pulseagent.MessageAppConfigDump: AppConfigDumpPath,
		},
		timeout: defaultTimeout,
		headers: make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.httpClient == nil {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
			MaxConnsPerHost:     defaultMaxConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
		}
		if s.useHTTP2 {
			if err := http2.ConfigureTransport(transport); err != nil {
				return nil, fmt.Errorf("failed to configure HTTP/2: %w", err)
			}
		}
		// no client timeout - we use per-request timeouts via context
		s.httpClient = &http.Client{Transport: transport}
	}

	return s, nil
}

// String identifies the sender in agent logs.
func (s *Sender) String() string {
	return "http " + s.baseURL
}

// URL returns the full URL documents of type mt are POSTed to.
func (s *Sender) URL(mt pulseagent.MessageType) string {
	return s.baseURL + s.paths[mt]
}

// SendCheckIn implements [pulseagent.Sender].
func (s *Sender) SendCheckIn(ctx context.Context, doc *pulseagent.Document) error {
	return s.post(ctx, pulseagent.MessageCheckIn, doc)
}

// SendAppEvent implements [pulseagent.Sender].
func (s *Sender) SendAppEvent(ctx context.Context, doc *pulseagent.Document) error {
	return s.post(ctx, pulseagent.MessageAppEvent, doc)
}

// SendThreadDump implements [pulseagent.Sender].
func (s *Sender) SendThreadDump(ctx context.Context, doc *pulseagent.Document) error {
	return s.post(ctx, pulseagent.MessageThreadDump, doc)
}

// SendAppConfigDump implements [pulseagent.Sender].
func (s *Sender) SendAppConfigDump(ctx context.Context, doc *pulseagent.Document) error {
	return s.post(ctx, pulseagent.MessageAppConfigDump, doc)
}

func (s *Sender) post(ctx context.Context, mt pulseagent.MessageType, doc *pulseagent.Document) error {
	url := s.URL(mt)

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", mt, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s statusCode=%d", url, resp.StatusCode)
	}
	return nil
}

// Close closes idle pooled connections. Safe to call multiple times; the
// sender remains usable afterwards.
func (s *Sender) Close() error {
	if s == nil || s.httpClient == nil {
		return nil
	}
	s.httpClient.CloseIdleConnections()
	return nil
}
