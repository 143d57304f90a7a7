package logger

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

type Logger = *log.Logger

// New returns a logger writing to w. Unknown levels fall back to warn so that
// a normal run prints nothing but the document.
func New(w io.Writer, level string) Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: "stitch",
	})

	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}

	return logger
}
