package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/dgellow/cors-relay/internal"
	"github.com/dgellow/cors-relay/internal/config"
	"github.com/dgellow/cors-relay/internal/log"
)

var BuildVersion = "dev"

type options struct {
	configPath         string
	envFile            string
	addr               string
	route              string
	timeout            time.Duration
	insecureSkipVerify bool
	allowedOrigins     []string
	configInit         string
	validate           bool
	version            bool
	help               bool
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("cors-relay", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to config file (JSON, comments allowed)")
	flagSet.StringVar(&opts.envFile, "env-file", "", "load environment variables from this file (default: .env when present)")
	flagSet.StringVar(&opts.addr, "addr", "", "listen address (default "+config.DefaultAddr+")")
	flagSet.StringVar(&opts.route, "route", "", "relay route path (default "+config.DefaultRoute+")")
	flagSet.DurationVar(&opts.timeout, "timeout", 0, "upstream call timeout (default 60s)")
	flagSet.BoolVar(&opts.insecureSkipVerify, "insecure-skip-verify", false, "disable TLS certificate and hostname verification for upstream calls")
	flagSet.StringArrayVar(&opts.allowedOrigins, "allowed-origin", nil, "allowed browser origin, repeatable (default: any origin)")
	flagSet.StringVar(&opts.configInit, "config-init", "", "write a default config file at this path and exit")
	flagSet.BoolVar(&opts.validate, "validate", false, "validate the config file and exit")
	flagSet.BoolVar(&opts.version, "version", false, "print version and exit")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")
	return flagSet
}

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"addr":               config.DefaultAddr,
		"route":              config.DefaultRoute,
		"timeout":            config.DefaultTimeout.String(),
		"insecureSkipVerify": false,
		"allowedOrigins":     []string{},
		"maxBodyBytes":       config.DefaultMaxBodyBytes,
		"shutdownTimeout":    config.DefaultShutdownTimeout.String(),
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return err
		}
		log.Logf("Loaded environment from %s", path)
		return nil
	}
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	log.Logf("Loaded environment from .env")
	return nil
}

// resolveConfig reads the config file when given and applies flag overrides
func resolveConfig(opts *options, flagSet *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if flagSet.Changed("addr") {
		cfg.Addr = opts.addr
	}
	if flagSet.Changed("route") {
		cfg.Route = opts.route
	}
	if flagSet.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flagSet.Changed("insecure-skip-verify") {
		cfg.InsecureSkipVerify = opts.insecureSkipVerify
	}
	if flagSet.Changed("allowed-origin") {
		cfg.AllowedOrigins = opts.allowedOrigins
	}

	if err := config.Validate(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func run(args []string) error {
	var opts options
	flagSet := newFlagSet(&opts)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.help {
		fmt.Fprintf(os.Stderr, "Usage: cors-relay [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}
	if opts.version {
		fmt.Println(BuildVersion)
		return nil
	}
	if opts.configInit != "" {
		if err := generateDefaultConfig(opts.configInit); err != nil {
			return err
		}
		fmt.Printf("Generated default config at: %s\n", opts.configInit)
		return nil
	}

	if err := loadEnv(opts.envFile); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}

	cfg, err := resolveConfig(&opts, flagSet)
	if err != nil {
		return err
	}

	if opts.validate {
		fmt.Println("Result: PASS")
		return nil
	}

	log.LogInfoWithFields("main", "Starting cors-relay", map[string]any{
		"version": BuildVersion,
		"config":  opts.configPath,
	})

	app, err := internal.NewCORSRelay(cfg)
	if err != nil {
		return err
	}
	if err := app.Listen(); err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}

	fmt.Printf("CORS relay running on http://%s\n", app.Addr())
	fmt.Printf("Relay endpoint: %s\n", app.RelayURL())
	fmt.Println("Press Ctrl+C to stop")

	return app.Run(context.Background())
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.LogError("cors-relay: %v", err)
		os.Exit(1)
	}
}
