package hlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/kardianos/service"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger logr.Logger = logr.Discard()

func LogToStderr() bool {
	return os.Getenv("SIC7_LOG") == "stderr"
}

func InitWithDebug(verbose bool, debug bool) {
	InitWithLevel(verbose, debug, zerolog.ErrorLevel)
}

// InitForDaemon initializes logging for daemon processes with info level as default
func InitForDaemon(verbose bool, debug bool) {
	InitWithLevel(verbose, debug, zerolog.InfoLevel)
}

// InitWithLevel initializes logging with a specific default level
func InitWithLevel(verbose bool, debug bool, defaultLevel zerolog.Level) {
	debugInit("Initializing logger")

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"
	// logr V(1) maps to zerolog debug, V(2) to trace
	zerologr.SetMaxV(2)

	var w io.Writer

	isTerminal := IsTerminal()

	if LogToStderr() || isTerminal {
		w = os.Stderr
	} else {
		var err error
		w, err = logWriter()
		if err != nil {
			debugInit(fmt.Sprintf("Failed to create log writer: %v", err))
			panic(err)
		}
		debugInit("Created file log writer")
	}

	zl := zerolog.New(w)

	if isTerminal {
		zl = zl.Output(zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !isColorTerminal(),
			TimeFormat: time.RFC3339,
		})
	}

	level := parseLogLevel(verbose, debug, defaultLevel)
	zerolog.SetGlobalLevel(level)
	zl = zl.Level(level)

	zl = zl.With().Caller().Timestamp().Logger()
	Logger = zerologr.New(&zl)
	Logger.Info("Initialized", "level", level.String(), "verbose", verbose, "debug", debug)
}

// parseLogLevel converts verbose and debug flags to zerolog level
func parseLogLevel(verbose bool, debug bool, defaultLevel zerolog.Level) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	if verbose {
		return zerolog.InfoLevel
	}
	return defaultLevel
}

func isColorTerminal() bool {
	if term := os.Getenv("TERM"); term == "dumb" {
		return false
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if _, exists := os.LookupEnv("CLICOLOR_FORCE"); exists {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}

	if term := os.Getenv("TERM"); term != "" {
		if strings.HasSuffix(term, "-256color") ||
			strings.HasSuffix(term, "-color") ||
			strings.HasPrefix(term, "xterm") ||
			strings.HasPrefix(term, "screen") {
			return true
		}
	}

	return IsTerminal()
}

func logWriter() (io.Writer, error) {
	if service.Interactive() {
		debugInit("Running in interactive mode, using stderr for logging")
		return os.Stderr, nil
	}

	// systemd captures stderr into the journal
	if os.Getenv("JOURNAL_STREAM") != "" || os.Getenv("INVOCATION_ID") != "" {
		return os.Stderr, nil
	}

	logDir := getLogDir()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "sic7.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}, nil
}

// GetLogger returns a logger for the given package name
func GetLogger(packageName string) logr.Logger {
	return Logger.WithName(packageName)
}

// IsContextCancellation checks if an error is due to context cancellation
func IsContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ErrorIfNotCanceled logs an error only if it's not due to context cancellation
func ErrorIfNotCanceled(log logr.Logger, err error, msg string, keysAndValues ...interface{}) {
	if err != nil && !IsContextCancellation(err) {
		log.Error(err, msg, keysAndValues...)
	}
}
