package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServer_StartStop(t *testing.T) {
	srv := NewHTTPServer(newTestHandler(), "127.0.0.1:0")
	require.NoError(t, srv.Listen())
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	resp, err := http.Post("http://"+srv.Addr()+"/api/proxy", "application/json", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"relayed":true}`, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err, "graceful stop is not an error")
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestHTTPServer_ListenError(t *testing.T) {
	first := NewHTTPServer(http.NotFoundHandler(), "127.0.0.1:0")
	require.NoError(t, first.Listen())
	t.Cleanup(func() { _ = first.Stop(context.Background()) })
	go func() { _ = first.Start() }()

	second := NewHTTPServer(http.NotFoundHandler(), first.Addr())
	assert.Error(t, second.Start())
}
