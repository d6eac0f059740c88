package testutil

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/dtroode/dnskeeper/internal/logger"
)

func MakeNoopLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, int(slog.LevelInfo))
}

// MakeBufferLogger records debug and above into buf so tests can assert on log output.
func MakeBufferLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.NewWithWriter(buf, int(slog.LevelDebug))
}
