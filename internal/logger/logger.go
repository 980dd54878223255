package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level string
	// File, when set, receives the log instead of the default writer and
	// is rotated by size.
	File string
}

// Setup initialises the global zlog logger. fallback is used when no file
// is configured; nil keeps the zlog default output.
func Setup(cfg Config, fallback io.Writer) (io.Closer, error) {
	zlog.Init()

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	var closer io.Closer = nopCloser{}
	w := fallback
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
		w, closer = lj, lj
	}
	if w != nil {
		zlog.Logger = zerolog.New(w).With().Timestamp().Logger()
	}
	return closer, nil
}

// Console is a human-readable writer for interactive tools.
func Console() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
