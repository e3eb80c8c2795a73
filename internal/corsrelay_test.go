package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/cors-relay/internal/config"
	"github.com/dgellow/cors-relay/internal/relay"
)

// startRelay serves a relay whose outbound calls trust upstream's test certificate
func startRelay(t *testing.T, upstream *httptest.Server) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	opts := relay.Options{
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if upstream != nil {
		opts.Transport = upstream.Client().Transport
	}
	srv := httptest.NewServer(newCORSRelay(cfg, opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestRelay_Scenarios(t *testing.T) {
	type sent struct{ auth, body string }
	received := make(chan sent, 8)
	upstream := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		select {
		case received <- sent{auth: r.Header.Get("Authorization"), body: string(b)}:
		default:
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/chat":
			_, _ = io.WriteString(w, `{"answer":"hello"}`)
		case "/v1/denied":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid token"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)
	srv := startRelay(t, upstream)

	t.Run("success", func(t *testing.T) {
		envelope := fmt.Sprintf(`{"apiKey":"k1","endpoint":%q,"payload":{"q":"hi"}}`, upstream.URL+"/v1/chat")
		resp, body := do(t, http.MethodPost, srv.URL+"/api/proxy", envelope)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"answer":"hello"}`, body)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
		got := <-received
		assert.Equal(t, "Bearer k1", got.auth)
		assert.Equal(t, `{"q":"hi"}`, got.body)
	})

	t.Run("upstream rejection", func(t *testing.T) {
		envelope := fmt.Sprintf(`{"apiKey":"k1","endpoint":%q,"payload":{"q":"hi"}}`, upstream.URL+"/v1/denied")
		resp, body := do(t, http.MethodPost, srv.URL+"/api/proxy", envelope)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, `{"error":"invalid token"}`, body)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		resp, body := do(t, http.MethodOptions, srv.URL+"/api/proxy", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, body)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", resp.Header.Get("Access-Control-Allow-Headers"))
	})

	t.Run("non json body", func(t *testing.T) {
		resp, body := do(t, http.MethodPost, srv.URL+"/api/proxy", "hello")

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		var msg map[string]string
		require.NoError(t, json.Unmarshal([]byte(body), &msg))
		assert.Contains(t, msg["error"], "invalid character")
	})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodPost, "/api/other"},
		{http.MethodOptions, "/api/other"},
		{http.MethodGet, "/api/proxy"},
	} {
		t.Run("unmatched "+tc.method+" "+tc.path, func(t *testing.T) {
			resp, body := do(t, tc.method, srv.URL+tc.path, "")
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Empty(t, body)
		})
	}
}

func TestRelay_ConnectionRefused(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	srv := startRelay(t, nil)
	envelope := fmt.Sprintf(`{"apiKey":"k1","endpoint":%q,"payload":{}}`, closedURL)
	resp, body := do(t, http.MethodPost, srv.URL+"/api/proxy", envelope)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var msg map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &msg))
	assert.Contains(t, msg["error"], "connection refused")
}

func TestNewCORSRelay_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Route = "api/proxy"

	_, err := NewCORSRelay(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestCORSRelay_RunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = 5 * time.Second

	app, err := NewCORSRelay(cfg)
	require.NoError(t, err)
	require.NoError(t, app.Listen())
	assert.True(t, strings.HasSuffix(app.RelayURL(), "/api/proxy"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + app.Addr() + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
