package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	rotator   io.Closer
	rotatorMu sync.Mutex
)

// Logger wraps logrus.Entry to provide structured logging with context support.
type Logger struct {
	*logrus.Entry
}

// Config holds logger configuration.
type Config struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text, or auto (text on a terminal)
	Output      io.Writer // explicit destination; overrides File
	ServiceName string

	File       string // rotated log file, written alongside stderr
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig returns the configuration used by the package default logger.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "auto",
		ServiceName: "narrator",
		MaxSizeMB:   100,
		MaxBackups:  7,
		MaxAgeDays:  30,
	}
}

// New creates a Logger. A nil cfg uses DefaultConfig.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetReportCaller(true)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
		if cfg.File != "" {
			fw := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			}
			rotatorMu.Lock()
			rotator = fw
			rotatorMu.Unlock()
			out = io.MultiWriter(os.Stderr, fw)
		}
	}
	log.SetOutput(out)
	log.SetFormatter(formatter(cfg.Format, out))

	return &Logger{Entry: log.WithField("service", cfg.ServiceName)}
}

func formatter(format string, out io.Writer) logrus.Formatter {
	format = strings.ToLower(format)
	if format == "auto" || format == "" {
		format = "json"
		if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = "text"
		}
	}
	if format == "text" {
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampFormat,
			CallerPrettyfier: callerPrettyfier,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: callerPrettyfier,
	}
}

// Sync closes the rotated log file, if any. Call it before exit.
func Sync() error {
	rotatorMu.Lock()
	defer rotatorMu.Unlock()
	if rotator != nil {
		return rotator.Close()
	}
	return nil
}

// WithFields returns a derived Logger with fields applied.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a derived Logger with a single field applied.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithError returns a derived Logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

// callerPrettyfier trims caller info to package.func and file:line.
func callerPrettyfier(frame *runtime.Frame) (string, string) {
	fn := frame.Function
	if idx := strings.LastIndex(fn, "/"); idx != -1 {
		fn = fn[idx+1:]
	}
	return fn, filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}
