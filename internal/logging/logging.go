// Package logging configures logrus output and keeps recent entries for the log endpoint.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultBufferSize is the number of entries retained when Options.BufferSize is unset.
const DefaultBufferSize = 2000

// Options configures Setup.
type Options struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	BufferSize int
}

// Setup applies opts to the standard logrus logger and installs a ring buffer hook.
// The returned closer flushes the rotating file, if any.
func Setup(opts Options) (*RingBuffer, io.Closer, error) {
	return setup(log.StandardLogger(), os.Stdout, opts)
}

func setup(logger *log.Logger, stdout io.Writer, opts Options) (*RingBuffer, io.Closer, error) {
	level := log.InfoLevel
	if raw := strings.TrimSpace(opts.Level); raw != "" {
		parsed, errParse := log.ParseLevel(raw)
		if errParse != nil {
			return nil, nil, fmt.Errorf("logging: %w", errParse)
		}
		level = parsed
	}
	logger.SetLevel(level)

	formatter, errFormatter := newFormatter(opts.Format)
	if errFormatter != nil {
		return nil, nil, errFormatter
	}
	logger.SetFormatter(formatter)

	var closer io.Closer = nopCloser{}
	out := stdout
	if path := strings.TrimSpace(opts.File); path != "" {
		if errMkdir := os.MkdirAll(filepath.Dir(path), 0o755); errMkdir != nil {
			return nil, nil, fmt.Errorf("logging: create log dir: %w", errMkdir)
		}
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		out = io.MultiWriter(stdout, rotating)
		closer = rotating
	}
	logger.SetOutput(out)

	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	buffer := NewRingBuffer(size, formatter)
	logger.AddHook(buffer)
	return buffer, closer, nil
}

func newFormatter(format string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return &log.TextFormatter{FullTimestamp: true, DisableColors: true}, nil
	case "json":
		return &log.JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
