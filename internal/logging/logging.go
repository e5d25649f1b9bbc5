package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes to stdout and, when a directory is configured, to a rotating log file.
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

func New(dir, level string) (*Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	l := logrus.New()
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if dir == "" {
		l.SetOutput(os.Stdout)
		return &Logger{Logger: l}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create logs folder failed: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "iotmon.log"),
		MaxSize:    50,
		MaxBackups: 7,
		MaxAge:     28,
		Compress:   true,
	}
	// Output to both file and console
	l.SetOutput(io.MultiWriter(file, os.Stdout))
	return &Logger{Logger: l, file: file}, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}

// Wrap adopts an existing logrus logger, e.g. one carrying a test hook.
func Wrap(l *logrus.Logger) *Logger {
	return &Logger{Logger: l}
}

func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.WithField("request_id", requestID)
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
