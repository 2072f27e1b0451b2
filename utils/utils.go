package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// NewLog opens (or appends to) <dir><name>.log and returns a json logger
// writing to it.
func NewLog(dir, name string) zerolog.Logger {
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(err)
	}
	fileName := filepath.Join(dir, fmt.Sprintf("%s.log", name))
	file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		panic(err)
	}
	return zerolog.New(file).With().Timestamp().Str("component", name).Logger()
}

// NewConsoleLog writes to stderr, human readable unless format is "json".
func NewConsoleLog(level, format string) zerolog.Logger {
	var writer io.Writer = os.Stderr
	if format != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// ShortSig trims a signature for display the way the status messages show it.
func ShortSig(sig string) string {
	if len(sig) <= 10 {
		return sig
	}
	return sig[:10] + "..."
}
