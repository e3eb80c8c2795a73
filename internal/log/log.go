package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LevelTrace sits below debug and is used for per-request wire detail
const LevelTrace = slog.Level(-8)

var (
	level  atomic.Value // slog.Level
	mu     sync.Mutex
	output io.Writer = os.Stderr
)

func init() {
	l, err := parseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		l = slog.LevelInfo
	}
	level.Store(l)
	install()
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return slog.LevelError, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "TRACE":
		return LevelTrace, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

func currentLevel() slog.Level {
	return level.Load().(slog.Level)
}

// install rebuilds the default slog handler from the current level, format and output
func install() {
	mu.Lock()
	defer mu.Unlock()

	jsonFormat := strings.EqualFold(os.Getenv("LOG_FORMAT"), "json")
	opts := &slog.HandlerOptions{
		Level: currentLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				if jsonFormat {
					return slog.String("timestamp", a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return slog.String(slog.TimeKey, a.Value.Time().Format("2006-01-02 15:04:05.000-07:00"))
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					return slog.String(slog.LevelKey, "TRACE")
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// SetOutput redirects log output, mainly so tests can capture lines
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
	install()
}

// SetLogLevel atomically updates the log level at runtime
func SetLogLevel(l string) error {
	parsed, err := parseLevel(l)
	if err != nil {
		return err
	}
	level.Store(parsed)
	install()

	LogDebugWithFields("logging", "Log level changed", map[string]any{
		"new_level": l,
	})
	return nil
}

// GetLogLevel returns the current log level as a lowercase string
func GetLogLevel() string {
	switch currentLevel() {
	case slog.LevelError:
		return "error"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelInfo:
		return "info"
	case slog.LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

func Logf(format string, args ...any) {
	slog.Default().Info(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...any) {
	slog.Default().Error(fmt.Sprintf(format, args...))
}

func LogDebug(format string, args ...any) {
	slog.Default().Debug(fmt.Sprintf(format, args...))
}

func fieldArgs(component string, fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2+2)
	args = append(args, "component", component)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

func LogInfoWithFields(component, message string, fields map[string]any) {
	slog.Default().Info(message, fieldArgs(component, fields)...)
}

func LogDebugWithFields(component, message string, fields map[string]any) {
	slog.Default().Debug(message, fieldArgs(component, fields)...)
}

func LogWarnWithFields(component, message string, fields map[string]any) {
	slog.Default().Warn(message, fieldArgs(component, fields)...)
}

func LogErrorWithFields(component, message string, fields map[string]any) {
	slog.Default().Error(message, fieldArgs(component, fields)...)
}

func LogTraceWithFields(component, message string, fields map[string]any) {
	if currentLevel() <= LevelTrace {
		slog.Default().Log(context.Background(), LevelTrace, message, fieldArgs(component, fields)...)
	}
}
