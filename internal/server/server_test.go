package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/svg2avd/pkg/cache"
	"github.com/matzehuels/svg2avd/pkg/converter"
	"github.com/matzehuels/svg2avd/pkg/pipeline"
	"github.com/matzehuels/svg2avd/pkg/render/fake"
)

func outcome(svg string) fake.Outcome {
	switch {
	case strings.Contains(svg, "gradient"):
		return fake.Outcome{Code: "<vector/>", Warnings: []string{"gradients are not supported"}}
	case strings.Contains(svg, "broken"):
		return fake.Outcome{Exception: "cannot parse path"}
	case strings.Contains(svg, "slow"):
		time.Sleep(time.Second)
	}
	return fake.Outcome{Code: "<vector>" + svg + "</vector>"}
}

// newTestServer starts a session on a fake browser and serves it.
func newTestServer(t *testing.T, started bool, timeout time.Duration) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	conv := converter.New(&fake.Browser{Convert: outcome}, converter.Options{EntryURL: "file:///index.html", Logger: logger})
	if started {
		if err := conv.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	t.Cleanup(func() { _ = conv.End() })

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(Options{
		Runner:         pipeline.NewRunner(conv, c, nil, logger),
		Session:        conv,
		Logger:         logger,
		MaxBodyBytes:   1024,
		RequestTimeout: timeout,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, query, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/convert"+query, "image/svg+xml", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, string(data)
}

func decodeError(t *testing.T, body string) errorBody {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return resp.Error
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		started bool
		status  int
		state   string
	}{
		{"ready", true, http.StatusOK, "ready"},
		{"unstarted", false, http.StatusServiceUnavailable, "unstarted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.started, 0)
			resp, err := http.Get(ts.URL + "/healthz")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body healthResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.State != tt.state || body.Session == "" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	ts := newTestServer(t, true, 0)
	svg := `<svg><path fill="currentColor"/></svg>`

	resp, body := post(t, ts, "?name=arrow.svg", svg)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if want := "<vector>" + converter.Sanitize(svg) + "</vector>"; body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/xml") {
		t.Errorf("Content-Type = %q", got)
	}
	id, _ := converter.SourceID([]byte(svg))
	if resp.Header.Get(HeaderID) != id {
		t.Errorf("%s = %q, want %q", HeaderID, resp.Header.Get(HeaderID), id)
	}
	if resp.Header.Get(HeaderCache) != "miss" {
		t.Errorf("first request should miss the cache")
	}

	resp, _ = post(t, ts, "", svg)
	if resp.Header.Get(HeaderCache) != "hit" {
		t.Errorf("second request should hit the cache")
	}
}

func TestConvertErrors(t *testing.T) {
	ts := newTestServer(t, true, 200*time.Millisecond)

	tests := []struct {
		name     string
		query    string
		body     string
		status   int
		code     string
		warnings bool
	}{
		{"warnings", "", "<svg>gradient</svg>", http.StatusUnprocessableEntity, "CONVERSION_WARNINGS", true},
		{"exception", "", "<svg>broken</svg>", http.StatusBadGateway, "CONVERSION_FAILED", false},
		{"timeout", "", "<svg>slow</svg>", http.StatusGatewayTimeout, "TIMEOUT", false},
		{"empty body", "", "", http.StatusBadRequest, "INVALID_INPUT", false},
		{"bad name", "?name=../x.svg", "<svg/>", http.StatusBadRequest, "INVALID_INPUT", false},
		{"too large", "", strings.Repeat("a", 2048), http.StatusRequestEntityTooLarge, "INVALID_INPUT", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts, tt.query, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, tt.status, body)
			}
			e := decodeError(t, body)
			if string(e.Code) != tt.code {
				t.Errorf("code = %s, want %s", e.Code, tt.code)
			}
			if tt.warnings && (len(e.Warnings) != 1 || e.Warnings[0] != "gradients are not supported") {
				t.Errorf("warnings = %v", e.Warnings)
			}
		})
	}
}

func TestConvertWithoutSession(t *testing.T) {
	ts := newTestServer(t, false, 0)
	resp, body := post(t, ts, "", "<svg/>")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if e := decodeError(t, body); e.Code != "NO_SESSION" {
		t.Errorf("code = %s", e.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, true, 0)
	resp, err := http.Get(ts.URL + "/v1/convert")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	srv := New(Options{Logger: log.New(io.Discard)})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
