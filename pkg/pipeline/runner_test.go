package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/svg2avd/pkg/cache"
	"github.com/matzehuels/svg2avd/pkg/converter"
	"github.com/matzehuels/svg2avd/pkg/render/fake"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func startSession(t *testing.T, b *fake.Browser) *converter.Converter {
	t.Helper()
	conv := converter.New(b, converter.Options{EntryURL: "file:///index.html", Logger: quietLogger()})
	if err := conv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conv.End() })
	return conv
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// countingBrowser returns a fake that counts conversions.
func countingBrowser(calls *atomic.Int32) *fake.Browser {
	return &fake.Browser{Convert: func(svg string) fake.Outcome {
		calls.Add(1)
		if svg == "<svg>gradient</svg>" {
			return fake.Outcome{Code: "<vector/>", Warnings: []string{"gradients are not supported"}}
		}
		return fake.Outcome{Code: "<vector>" + svg + "</vector>"}
	}}
}

func TestRunnerCaches(t *testing.T) {
	var calls atomic.Int32
	conv := startSession(t, countingBrowser(&calls))
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(conv, c, nil, quietLogger())
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "a.svg", "<svg>a</svg>")

	first, err := r.Convert(ctx, path)
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if first.Cached || first.Code != "<vector><svg>a</svg></vector>" {
		t.Errorf("first = %+v", first)
	}

	second, err := r.Convert(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.Code != first.Code || second.ID != first.ID {
		t.Errorf("second = %+v", second)
	}
	if calls.Load() != 1 {
		t.Errorf("converter called %d times, want 1", calls.Load())
	}

	r.Refresh = true
	if res, err := r.Convert(ctx, path); err != nil || res.Cached {
		t.Errorf("refresh: %+v, %v", res, err)
	}
	if calls.Load() != 2 {
		t.Errorf("converter called %d times after refresh, want 2", calls.Load())
	}
}

func TestRunnerCacheHitWithoutSession(t *testing.T) {
	ctx := context.Background()
	c, _ := cache.NewFileCache(t.TempDir())
	data := []byte(`<svg fill="currentColor"/>`)

	id, err := converter.SourceID(data)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(converter.New(&fake.Browser{}, converter.Options{Logger: quietLogger()}), c, nil, quietLogger())
	if err := c.Set(ctx, r.Keyer.ArtifactKey(id, r.KeyOpts), []byte("<vector cached/>"), 0); err != nil {
		t.Fatal(err)
	}

	// The session was never started; a hit must not need it.
	res, err := r.ConvertSource(ctx, "icon.svg", data)
	if err != nil {
		t.Fatalf("ConvertSource error: %v", err)
	}
	if !res.Cached || res.Code != "<vector cached/>" {
		t.Errorf("res = %+v", res)
	}

	// A miss does.
	if _, err := r.ConvertSource(ctx, "other.svg", []byte("<svg/>")); !errs.Is(err, errs.ErrCodeNoSession) {
		t.Errorf("miss without session: %v", err)
	}
}

func TestRunnerDoesNotCacheFailures(t *testing.T) {
	var calls atomic.Int32
	conv := startSession(t, countingBrowser(&calls))
	c, _ := cache.NewFileCache(t.TempDir())
	r := NewRunner(conv, c, nil, quietLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := r.ConvertSource(ctx, "g.svg", []byte("<svg>gradient</svg>"))
		var w *errs.WarningsError
		if !errors.As(err, &w) {
			t.Fatalf("error = %v, want WarningsError", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("converter called %d times, want 2", calls.Load())
	}
}

func TestRunnerConvertMissingFile(t *testing.T) {
	r := NewRunner(nil, nil, nil, quietLogger())
	res, err := r.Convert(context.Background(), filepath.Join(t.TempDir(), "missing.svg"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
	if res == nil || res.Source == "" {
		t.Error("result should carry the source")
	}
}

func TestConvertAll(t *testing.T) {
	var calls atomic.Int32
	conv := startSession(t, countingBrowser(&calls))
	r := NewRunner(conv, nil, nil, quietLogger())
	dir := t.TempDir()

	paths := []string{
		writeFile(t, dir, "a.svg", "<svg>a</svg>"),
		writeFile(t, dir, "b.svg", "<svg>b</svg>"),
		filepath.Join(dir, "missing.svg"),
		writeFile(t, dir, "gradient.svg", "<svg>gradient</svg>"),
		writeFile(t, dir, "c.svg", "<svg>c</svg>"),
		writeFile(t, dir, "a-copy.svg", "<svg>a</svg>"),
	}

	results, err := r.ConvertAll(context.Background(), paths, 2)
	if err != nil {
		t.Fatalf("ConvertAll error: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}

	for i, res := range results {
		if res.Source != paths[i] {
			t.Errorf("results[%d].Source = %s, want %s", i, res.Source, paths[i])
		}
	}
	if results[0].Err != nil || results[0].Code != "<vector><svg>a</svg></vector>" {
		t.Errorf("a: %+v", results[0])
	}
	if results[5].Err != nil || results[5].Code != results[0].Code {
		t.Errorf("a-copy: %+v", results[5])
	}
	if !errs.Is(results[2].Err, errs.ErrCodeFileNotFound) {
		t.Errorf("missing: %v", results[2].Err)
	}
	if !errs.Is(results[3].Err, errs.ErrCodeConversionWarnings) {
		t.Errorf("gradient: %v", results[3].Err)
	}
}

func TestConvertAllCancelled(t *testing.T) {
	conv := startSession(t, &fake.Browser{}) // never answers
	r := NewRunner(conv, nil, nil, quietLogger())
	dir := t.TempDir()
	paths := []string{writeFile(t, dir, "a.svg", "<svg>a</svg>")}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results, err := r.ConvertAll(ctx, paths, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ConvertAll error = %v, want deadline exceeded", err)
	}
	if !errors.Is(results[0].Err, context.DeadlineExceeded) {
		t.Errorf("result error = %v", results[0].Err)
	}
}

func TestOpenRetries(t *testing.T) {
	attempts := 0
	var browsers []*fake.Browser
	factory := func() *converter.Converter {
		attempts++
		b := &fake.Browser{}
		if attempts < 3 {
			b.LaunchErr = errors.New("chrome not ready")
		}
		browsers = append(browsers, b)
		return converter.New(b, converter.Options{Logger: quietLogger()})
	}

	conv, err := OpenWith(context.Background(), 3, time.Millisecond, factory)
	if err != nil {
		t.Fatalf("OpenWith error: %v", err)
	}
	defer conv.End()

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if conv.State() != converter.StateReady {
		t.Errorf("State() = %v", conv.State())
	}
	for i, b := range browsers {
		if b.Launches() != 1 {
			t.Errorf("browser %d launched %d times; each attempt needs a fresh converter", i, b.Launches())
		}
	}
}

func TestOpenGivesUp(t *testing.T) {
	attempts := 0
	factory := func() *converter.Converter {
		attempts++
		return converter.New(&fake.Browser{LaunchErr: errors.New("no chrome")}, converter.Options{Logger: quietLogger()})
	}

	_, err := OpenWith(context.Background(), 2, time.Millisecond, factory)
	if !errs.Is(err, errs.ErrCodeSessionStart) {
		t.Errorf("error = %v, want SESSION_START_FAILED", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestConvertAllProgress(t *testing.T) {
	var calls atomic.Int32
	conv := startSession(t, countingBrowser(&calls))
	r := NewRunner(conv, nil, nil, quietLogger())
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.svg", "<svg>a</svg>"),
		writeFile(t, dir, "b.svg", "<svg>b</svg>"),
		writeFile(t, dir, "c.svg", "<svg>c</svg>"),
	}

	var reported atomic.Int32
	r.Progress = func(res *Result) {
		if res == nil || res.Source == "" {
			t.Error("progress called without a result")
		}
		reported.Add(1)
	}
	if _, err := r.ConvertAll(context.Background(), paths, 0); err != nil {
		t.Fatal(err)
	}
	if reported.Load() != 3 {
		t.Errorf("progress reported %d results, want 3", reported.Load())
	}
}
