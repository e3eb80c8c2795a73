package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dgellow/cors-relay/internal/config"
	"github.com/dgellow/cors-relay/internal/log"
	"golang.org/x/oauth2"
)

const DefaultTimeout = 60 * time.Second

// Options configures a Forwarder and the relay handler
type Options struct {
	// Timeout bounds the outbound call including reading the body
	Timeout time.Duration

	// InsecureSkipVerify turns off certificate and hostname verification
	// for the outbound TLS connection
	InsecureSkipVerify bool

	// MaxBodyBytes caps the inbound envelope. Zero means no cap.
	MaxBodyBytes int64

	// Transport replaces the TLS transport, used by tests
	Transport http.RoundTripper
}

// Forwarder issues the outbound authenticated POST. The transport is shared
// across calls; everything request-scoped is built per call.
type Forwarder struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// NewForwarder creates a Forwarder from opts
func NewForwarder(opts Options) *Forwarder {
	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // explicit opt-in
		}
		transport = t
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Forwarder{
		transport: transport,
		timeout:   timeout,
	}
}

// clientFor returns a client that sends apiKey as a bearer token
func (f *Forwarder) clientFor(apiKey config.Secret) *http.Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: string(apiKey),
		TokenType:   "Bearer",
	})
	return &http.Client{
		Transport: &oauth2.Transport{Source: source, Base: f.transport},
		Timeout:   f.timeout,
		// Redirects would replay the bearer token to wherever they point
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Forward posts env's payload to env's endpoint and returns whatever the
// upstream answered. Only local failures are returned as errors, as *Error.
func (f *Forwarder) Forward(ctx context.Context, env *Envelope) (*Response, error) {
	body, err := env.encodePayload()
	if err != nil {
		return nil, err
	}

	if env.Endpoint == "" {
		return nil, &Error{Stage: StageBuild, Err: errors.New("endpoint is required")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, env.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Stage: StageBuild, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	log.LogTraceWithFields("relay", "Sending upstream request", map[string]any{
		"endpoint": env.Endpoint,
		"bytes":    len(body),
	})

	resp, err := f.clientFor(env.APIKey).Do(req)
	if err != nil {
		return nil, &Error{Stage: StageSend, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Stage: StageRead, Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
	}, nil
}
