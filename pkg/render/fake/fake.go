// Package fake provides an in-memory [render.Browser] for tests.
//
// A fake page either answers every evaluated job on its own, using
// [Browser.Convert], or leaves completion to the test, which emits payloads
// with [Page.Emit] and [Page.EmitResult]. Jobs are expected to be evaluated
// with (text, id) arguments, the way the converter submits them.
//
//	b := &fake.Browser{Convert: func(svg string) fake.Outcome {
//	    return fake.Outcome{Code: "<vector/>"}
//	}}
//	conv := converter.New(b, converter.Options{EntryURL: "file:///index.html"})
package fake

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/matzehuels/svg2avd/pkg/render"
)

// ErrClosed is returned by operations on a closed page or environment.
var ErrClosed = errors.New("fake: closed")

// Outcome is what the fake converter reports for one job.
type Outcome struct {
	Code      string
	Warnings  []string
	Exception string // Non-empty reports {exc: {message}}
}

// Payload builds the completion payload the converter page would emit.
func Payload(id string, o Outcome) []byte {
	msg := map[string]any{"id": id}
	if o.Code != "" {
		msg["code"] = o.Code
	}
	if len(o.Warnings) > 0 {
		msg["warnings"] = o.Warnings
	}
	if o.Exception != "" {
		msg["exc"] = map[string]string{"name": "Error", "message": o.Exception}
	}
	data, _ := json.Marshal(msg)
	return data
}

// Browser is a scripted render.Browser. The zero value launches
// environments whose pages load successfully and never answer on their own.
type Browser struct {
	// Convert answers jobs asynchronously when set.
	Convert func(svg string) Outcome

	// Status is the load status reported by Open; empty means success.
	Status string

	LaunchErr   error
	PageErr     error
	OpenErr     error
	EvaluateErr error

	// EvaluateDelay makes Evaluate take this long, returning ctx.Err() if
	// its context ends first.
	EvaluateDelay time.Duration

	mu       sync.Mutex
	launches int
	envs     []*Environment
	lastPage *Page
}

// Launch creates a new fake environment.
func (b *Browser) Launch(ctx context.Context) (render.Environment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.launches++
	if b.LaunchErr != nil {
		return nil, b.LaunchErr
	}
	env := &Environment{browser: b}
	b.envs = append(b.envs, env)
	return env, nil
}

// Launches returns how many times Launch was called.
func (b *Browser) Launches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.launches
}

// Environments returns every environment launched so far.
func (b *Browser) Environments() []*Environment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Environment(nil), b.envs...)
}

// LastPage returns the most recently created page, or nil.
func (b *Browser) LastPage() *Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPage
}

// Environment is a fake render environment.
type Environment struct {
	browser *Browser

	mu     sync.Mutex
	closed bool
	pages  []*Page
}

// NewPage creates a fake page.
func (e *Environment) NewPage(ctx context.Context) (render.Page, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if e.browser.PageErr != nil {
		return nil, e.browser.PageErr
	}
	p := &Page{browser: e.browser}
	e.pages = append(e.pages, p)

	e.browser.mu.Lock()
	e.browser.lastPage = p
	e.browser.mu.Unlock()
	return p, nil
}

// Close marks the environment and its pages closed.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.closed = true
	for _, p := range e.pages {
		p.markClosed()
	}
	return nil
}

// Closed reports whether Close was called.
func (e *Environment) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Submission records one Evaluate call.
type Submission struct {
	Script string
	Text   string
	ID     string
}

// Page is a fake execution context.
type Page struct {
	browser *Browser

	mu          sync.Mutex
	handler     func([]byte)
	url         string
	closed      bool
	submissions []Submission
}

// Open records url and reports the browser's configured status.
func (p *Page) Open(ctx context.Context, url string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return render.StatusFail, ErrClosed
	}
	p.url = url
	if p.browser.OpenErr != nil {
		return render.StatusFail, p.browser.OpenErr
	}
	if p.browser.Status != "" {
		return p.browser.Status, nil
	}
	return render.StatusSuccess, nil
}

// OnCallback sets the completion handler.
func (p *Page) OnCallback(fn func([]byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = fn
}

// Evaluate records the job and, in automatic mode, answers it from a new
// goroutine. The acknowledgment is the id argument.
func (p *Page) Evaluate(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if p.browser.EvaluateErr != nil {
		p.mu.Unlock()
		return nil, p.browser.EvaluateErr
	}
	sub := Submission{Script: script}
	if len(args) > 0 {
		sub.Text, _ = args[0].(string)
	}
	if len(args) > 1 {
		sub.ID, _ = args[1].(string)
	}
	p.submissions = append(p.submissions, sub)
	p.mu.Unlock()

	if d := p.browser.EvaluateDelay; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if convert := p.browser.Convert; convert != nil {
		go p.EmitResult(sub.ID, convert(sub.Text))
	}
	return json.Marshal(sub.ID)
}

// Close marks the page closed.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	return nil
}

func (p *Page) markClosed() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Emit delivers a raw payload to the callback handler. It reports false if
// no handler is installed or the page is closed.
func (p *Page) Emit(payload []byte) bool {
	p.mu.Lock()
	fn, closed := p.handler, p.closed
	p.mu.Unlock()
	if fn == nil || closed {
		return false
	}
	fn(payload)
	return true
}

// EmitResult delivers the payload for id and o.
func (p *Page) EmitResult(id string, o Outcome) bool {
	return p.Emit(Payload(id, o))
}

// URL returns the last url passed to Open.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Closed reports whether the page was closed.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Submissions returns the jobs evaluated so far.
func (p *Page) Submissions() []Submission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Submission(nil), p.submissions...)
}

var (
	_ render.Browser     = (*Browser)(nil)
	_ render.Environment = (*Environment)(nil)
	_ render.Page        = (*Page)(nil)
)
