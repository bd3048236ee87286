package hlog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		verbose, debug bool
		def            zerolog.Level
		want           zerolog.Level
	}{
		{false, false, zerolog.ErrorLevel, zerolog.ErrorLevel},
		{false, false, zerolog.InfoLevel, zerolog.InfoLevel},
		{true, false, zerolog.ErrorLevel, zerolog.InfoLevel},
		{false, true, zerolog.ErrorLevel, zerolog.DebugLevel},
		{true, true, zerolog.InfoLevel, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.verbose, tt.debug, tt.def); got != tt.want {
			t.Errorf("parseLogLevel(%v, %v, %v) = %v, want %v", tt.verbose, tt.debug, tt.def, got, tt.want)
		}
	}
}

func TestIsContextCancellation(t *testing.T) {
	if IsContextCancellation(nil) {
		t.Error("nil is a cancellation")
	}
	if !IsContextCancellation(fmt.Errorf("publish: %w", context.Canceled)) {
		t.Error("wrapped context.Canceled is not a cancellation")
	}
	if !IsContextCancellation(context.DeadlineExceeded) {
		t.Error("context.DeadlineExceeded is not a cancellation")
	}
	if IsContextCancellation(errors.New("connection refused")) {
		t.Error("plain error is a cancellation")
	}
}
