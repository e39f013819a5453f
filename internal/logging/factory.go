package logging

import (
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/zap"
)

const (
	BackendSlog = "slog"
	BackendZap  = "zap"
)

// New builds the process logger for the configured backend.
// An empty backend selects slog with JSON lines on stdout.
func New(backend string) (Logger, error) {
	switch backend {
	case "", BackendSlog:
		return NewSlogJSON(os.Stdout, slog.LevelInfo), nil
	case BackendZap:
		zl, err := zap.NewProduction(zap.Fields(zap.String("service", ServiceName)))
		if err != nil {
			return nil, err
		}
		return NewZapLogger(zl), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}
