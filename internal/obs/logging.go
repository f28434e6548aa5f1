// Package obs contains observability utilities such as logging.
package obs

import (
	"log/slog"
	"os"
)

// Logger is the structured logger shared by the service. InitLogger must be
// called once at startup before any package logs through it.
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// InitLogger replaces the default Logger with a JSON handler at the given
// level.
func InitLogger(level slog.Level) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	Logger = slog.New(h)
}
