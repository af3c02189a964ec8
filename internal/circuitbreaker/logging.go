// v0
// internal/circuitbreaker/logging.go
package circuitbreaker

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	baseMu     sync.Mutex
	baseLogger *slog.Logger
)

// SetLogger routes breaker logs through the service logger. Breakers built
// before the call keep the logger they were created with.
func SetLogger(l *slog.Logger) {
	baseMu.Lock()
	defer baseMu.Unlock()
	baseLogger = l
}

// newLogger returns the service logger when one was set, otherwise a text
// logger on stdout, teed to filePath when it can be opened.
func newLogger(filePath string) *slog.Logger {
	baseMu.Lock()
	l := baseLogger
	baseMu.Unlock()
	if l != nil && filePath == "" {
		return l.With(slog.String("component", "circuit_breaker"))
	}
	var w io.Writer = os.Stdout
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			w = io.MultiWriter(os.Stdout, f)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
