package config

import (
	"encoding/json"
	"time"
)

const (
	DefaultAddr            = "127.0.0.1:8001"
	DefaultRoute           = "/api/proxy"
	DefaultTimeout         = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = 10 << 20
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// Config is the resolved relay configuration
type Config struct {
	// Addr is the listen address. The relay is meant for loopback use.
	Addr string `json:"addr"`

	// Route is the single path the relay answers on
	Route string `json:"route"`

	// Timeout bounds the whole outbound call, body included
	Timeout time.Duration `json:"timeout"`

	// InsecureSkipVerify disables certificate chain and hostname checks on
	// the outbound TLS connection. Off unless explicitly requested.
	InsecureSkipVerify bool `json:"insecureSkipVerify"`

	// AllowedOrigins restricts Access-Control-Allow-Origin. Empty means "*".
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`

	// MaxBodyBytes caps the inbound envelope size. Zero disables the cap.
	MaxBodyBytes int64 `json:"maxBodyBytes"`

	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Addr:            DefaultAddr,
		Route:           DefaultRoute,
		Timeout:         DefaultTimeout,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}
