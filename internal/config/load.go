package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
)

// Load reads a JSON config file (comments and trailing commas allowed),
// resolves {"$env": "VAR"} references, applies defaults and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse is Load without the file read
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks a resolved configuration
func Validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if !strings.HasPrefix(cfg.Route, "/") {
		return fmt.Errorf("route must start with '/' (got %q)", cfg.Route)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdownTimeout must be positive (got %s)", cfg.ShutdownTimeout)
	}
	if cfg.MaxBodyBytes < 0 {
		return fmt.Errorf("maxBodyBytes cannot be negative")
	}
	for i, origin := range cfg.AllowedOrigins {
		if origin == "" || origin == "*" {
			return fmt.Errorf("allowedOrigins[%d]: leave the list empty to allow any origin", i)
		}
	}
	return nil
}

// UnmarshalJSON overlays the fields present in data onto c, so a Config
// prefilled by Default keeps its defaults for anything the file omits.
func (c *Config) UnmarshalJSON(data []byte) error {
	type rawConfig struct {
		Addr               json.RawMessage   `json:"addr"`
		Route              json.RawMessage   `json:"route"`
		Timeout            json.RawMessage   `json:"timeout"`
		InsecureSkipVerify json.RawMessage   `json:"insecureSkipVerify"`
		AllowedOrigins     []json.RawMessage `json:"allowedOrigins"`
		MaxBodyBytes       *int64            `json:"maxBodyBytes"`
		ShutdownTimeout    json.RawMessage   `json:"shutdownTimeout"`
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Addr != nil {
		v, err := ParseConfigValue(raw.Addr)
		if err != nil {
			return fmt.Errorf("parsing addr: %w", err)
		}
		c.Addr = v
	}
	if raw.Route != nil {
		v, err := ParseConfigValue(raw.Route)
		if err != nil {
			return fmt.Errorf("parsing route: %w", err)
		}
		c.Route = v
	}
	if raw.Timeout != nil {
		d, err := parseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		c.Timeout = d
	}
	if raw.ShutdownTimeout != nil {
		d, err := parseDuration(raw.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("parsing shutdownTimeout: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if raw.InsecureSkipVerify != nil {
		b, err := parseBool(raw.InsecureSkipVerify)
		if err != nil {
			return fmt.Errorf("parsing insecureSkipVerify: %w", err)
		}
		c.InsecureSkipVerify = b
	}
	if raw.AllowedOrigins != nil {
		origins := make([]string, 0, len(raw.AllowedOrigins))
		for i, item := range raw.AllowedOrigins {
			v, err := ParseConfigValue(item)
			if err != nil {
				return fmt.Errorf("parsing allowedOrigins[%d]: %w", i, err)
			}
			origins = append(origins, v)
		}
		c.AllowedOrigins = origins
	}
	if raw.MaxBodyBytes != nil {
		c.MaxBodyBytes = *raw.MaxBodyBytes
	}
	return nil
}

// ParseConfigValue parses a JSON value that is either a plain string or an
// {"$env": "VAR"} reference resolved immediately from the environment
func ParseConfigValue(raw json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return "", fmt.Errorf("unknown reference type in config value")
	}
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("environment variable %s not set", envVar)
	}
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return value, nil
}

func parseDuration(raw json.RawMessage) (time.Duration, error) {
	s, err := ParseConfigValue(raw)
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(s)
}

func parseBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	s, err := ParseConfigValue(raw)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(s)
}
