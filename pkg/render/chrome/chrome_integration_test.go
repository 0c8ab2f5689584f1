//go:build integration

package chrome

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/svg2avd/pkg/render"
)

func TestChromeRoundTrip(t *testing.T) {
	if os.Getenv("SVG2AVD_CHROME") == "" {
		t.Skip("set SVG2AVD_CHROME=1 to run against a local Chrome")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	env, err := New(Options{NoSandbox: true}).Launch(ctx)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer env.Close()

	page, err := env.NewPage(ctx)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	defer page.Close()

	got := make(chan []byte, 1)
	page.OnCallback(func(payload []byte) { got <- payload })

	abs, _ := filepath.Abs("testdata/index.html")
	status, err := page.Open(ctx, "file://"+abs)
	if err != nil || status != render.StatusSuccess {
		t.Fatalf("Open = %q, %v", status, err)
	}

	ack, err := page.Evaluate(ctx, `function (id) {
  setTimeout(function () { window.callHost({ id: id, code: generateCode("x").code }); }, 1);
  return id;
}`, "abc")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if string(ack) != `"abc"` {
		t.Errorf("ack = %s", ack)
	}

	select {
	case payload := <-got:
		if string(payload) != `{"id":"abc","code":"<vector/>"}` {
			t.Errorf("payload = %s", payload)
		}
	case <-ctx.Done():
		t.Fatal("no callback received")
	}
}
