package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dgellow/cors-relay/internal/config"
	"github.com/dgellow/cors-relay/internal/log"
	"github.com/dgellow/cors-relay/internal/relay"
	"github.com/dgellow/cors-relay/internal/server"
)

// CORSRelay is the assembled application: one relay route behind CORS,
// logging and panic recovery, served on the configured address
type CORSRelay struct {
	config     config.Config
	handler    http.Handler
	httpServer *server.HTTPServer
}

// NewCORSRelay wires a relay from cfg
func NewCORSRelay(cfg config.Config) (*CORSRelay, error) {
	if err := config.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := relay.Options{
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	}
	return newCORSRelay(cfg, opts), nil
}

func newCORSRelay(cfg config.Config, opts relay.Options) *CORSRelay {
	if opts.InsecureSkipVerify {
		log.LogWarnWithFields("corsrelay", "TLS certificate and hostname verification is DISABLED for upstream calls; traffic to the upstream API can be intercepted", map[string]any{
			"setting": "insecureSkipVerify",
		})
	}

	relayHandler := relay.NewHandler(relay.NewForwarder(opts), opts)
	handler := server.ChainMiddleware(
		server.NewRouter(server.Routes(cfg.Route, relayHandler)),
		server.NewCORSMiddleware(cfg.AllowedOrigins),
		server.NewRecoverMiddleware("corsrelay"),
		server.NewLoggerMiddleware("corsrelay"),
	)

	return &CORSRelay{
		config:     cfg,
		handler:    handler,
		httpServer: server.NewHTTPServer(handler, cfg.Addr),
	}
}

// Handler returns the fully chained handler
func (c *CORSRelay) Handler() http.Handler {
	return c.handler
}

// Listen binds the configured address so the real one is known before Run
func (c *CORSRelay) Listen() error {
	return c.httpServer.Listen()
}

// Addr is the listen address, resolved once Listen has run
func (c *CORSRelay) Addr() string {
	return c.httpServer.Addr()
}

// RelayURL is the URL browsers should post envelopes to
func (c *CORSRelay) RelayURL() string {
	return "http://" + c.Addr() + c.config.Route
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully within the configured shutdown timeout
func (c *CORSRelay) Run(ctx context.Context) error {
	if err := c.Listen(); err != nil {
		return fmt.Errorf("listening on %s: %w", c.config.Addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.LogInfoWithFields("corsrelay", "Relay running", map[string]any{
		"addr":  c.Addr(),
		"relay": c.RelayURL(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		reason := "server error"
		if ctx.Err() != nil {
			reason = "shutdown requested"
		}
		log.LogInfoWithFields("corsrelay", "Starting graceful shutdown", map[string]any{
			"reason":  reason,
			"timeout": c.config.ShutdownTimeout.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.config.ShutdownTimeout)
		defer cancel()
		return c.httpServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.LogErrorWithFields("corsrelay", "Relay stopped with error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	log.LogInfoWithFields("corsrelay", "Relay stopped", nil)
	return nil
}
