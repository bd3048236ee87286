package global

import (
	"context"
	"testing"
)

func TestProcessContext(t *testing.T) {
	ctx := context.Background()
	if ProcessContext(ctx) != ctx {
		t.Error("without a process context, the context itself is returned")
	}

	process, stop := context.WithCancel(ctx)
	defer stop()
	command, cancel := context.WithCancel(process)
	command = context.WithValue(command, ProcessContextKey, process)
	cancel()

	got := ProcessContext(command)
	if got.Err() != nil {
		t.Error("process context canceled along with the command context")
	}
	stop()
	if got.Err() == nil {
		t.Error("process context not canceled by its own cancel")
	}
}

func TestVersionAndCancel(t *testing.T) {
	if v := Version(context.Background()); v != "unknown" {
		t.Errorf("Version() = %q", v)
	}
	ctx := context.WithValue(context.Background(), VersionKey, "v1.2.3")
	if v := Version(ctx); v != "v1.2.3" {
		t.Errorf("Version() = %q", v)
	}
	Cancel(context.Background())() // no-op
}
