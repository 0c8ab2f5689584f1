package render

import (
	"context"
	"encoding/json"
)

// StatusSuccess is the load status reported by [Page.Open] when the entry
// document is loaded and the converter is available.
const StatusSuccess = "success"

// StatusFail is reported when the document loaded but the converter did not.
const StatusFail = "fail"

// HostCallback is the global function scripts call to emit a payload.
const HostCallback = "callHost"

// Browser spawns render environments.
type Browser interface {
	// Launch starts a new environment. The environment outlives ctx; it is
	// terminated only by [Environment.Close].
	Launch(ctx context.Context) (Environment, error)
}

// Environment is a running headless browser process.
type Environment interface {
	// NewPage creates an execution context inside the environment.
	NewPage(ctx context.Context) (Page, error)

	// Close terminates the environment and every page in it.
	Close() error
}

// Page is a single execution context with a loaded document.
type Page interface {
	// Open loads the document at url and reports a load status.
	// A nil error with a status other than [StatusSuccess] means the document
	// could not be used.
	Open(ctx context.Context, url string) (string, error)

	// OnCallback sets the handler for payloads emitted via window.callHost.
	// The handler may be called from any goroutine and must not block.
	OnCallback(fn func(payload []byte))

	// Evaluate calls the JavaScript function expression script with args
	// (JSON-encoded) and returns the JSON encoding of its return value.
	Evaluate(ctx context.Context, script string, args ...any) (json.RawMessage, error)

	// Close closes the execution context.
	Close() error
}
