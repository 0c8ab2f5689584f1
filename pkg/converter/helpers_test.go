package converter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/svg2avd/pkg/observability"
	"github.com/matzehuels/svg2avd/pkg/render/fake"
)

const testEntry = "file:///opt/svg2android/index.html"

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// startConverter returns a ready converter hosted by b, ended on cleanup.
func startConverter(t *testing.T, b *fake.Browser, timeout time.Duration) *Converter {
	t.Helper()
	conv := New(b, Options{EntryURL: testEntry, RequestTimeout: timeout, Logger: quietLogger()})
	if err := conv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { _ = conv.End() })
	return conv
}

func writeSVG(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// recordingHooks captures conversion events.
type recordingHooks struct {
	mu        sync.Mutex
	started   []string
	completed map[string]error
	dropped   []string
}

func recordConversions(t *testing.T) *recordingHooks {
	t.Helper()
	h := &recordingHooks{completed: make(map[string]error)}
	observability.SetConversionHooks(h)
	t.Cleanup(observability.Reset)
	return h
}

func (h *recordingHooks) OnConvertStart(_ context.Context, id, _ string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, id)
}

func (h *recordingHooks) OnConvertComplete(_ context.Context, id string, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed[id] = err
}

func (h *recordingHooks) OnCallbackDropped(_ context.Context, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropped = append(h.dropped, reason)
}

func (h *recordingHooks) droppedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dropped)
}
