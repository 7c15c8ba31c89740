package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a logger writing JSON lines to w. Unknown levels fall back to
// info.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
