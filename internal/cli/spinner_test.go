package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "Starting render session...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "Starting render session...") {
		t.Errorf("output missing message: %q", got)
	}
	if !strings.HasSuffix(got, "\r") {
		t.Errorf("line should be cleared after Stop: %q", got)
	}
	if s.Cancelled() {
		t.Error("Stop should not count as cancellation")
	}
}

func TestSpinnerCancelled(t *testing.T) {
	tests := []struct {
		name   string
		parent func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.parent()
			defer cancel()

			var out syncBuffer
			s := newSpinner(ctx, &out, "Waiting...")
			s.Start()
			time.Sleep(100 * time.Millisecond)

			if !s.Cancelled() {
				t.Error("spinner should report cancellation of its context")
			}
			s.Stop()
			if !s.Cancelled() {
				t.Error("Stop after cancellation should keep reporting it")
			}
		})
	}
}

func TestSpinnerStop(t *testing.T) {
	var out syncBuffer

	s := newSpinner(context.Background(), &out, "Stopping...")
	s.Start()
	s.Stop()
	s.Stop()

	// Stop before Start must not block.
	newSpinner(context.Background(), &out, "Never started").Stop()
}

func TestSpinnerStopWithStatus(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "Working...")
	s.Start()
	s.StopWithSuccess("Render session ready")

	s = newSpinner(context.Background(), &out, "Working...")
	s.Start()
	s.StopWithError("Render session failed to start")
}
