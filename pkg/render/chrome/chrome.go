// Package chrome implements [render.Browser] on top of headless Chrome using
// chromedp.
//
// Each [Environment] is one Chrome process; each [Page] is one tab. The
// host callback channel is a DevTools runtime binding: pages get a
// window.callHost(payload) function that JSON-encodes payload and forwards it
// through the binding, and the binding events are delivered to the handler
// set with OnCallback.
//
// Chrome must be installed; set [Options.ExecPath] if it is not on PATH.
// Entry documents loaded from file:// URLs may load sibling scripts because
// file access from files is enabled.
package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/matzehuels/svg2avd/pkg/render"
)

const (
	// bindingName is the runtime binding backing window.callHost.
	bindingName = "__svg2avdHost"

	// DefaultReadyCheck is evaluated after navigation; the page is usable
	// when it returns true.
	DefaultReadyCheck = `typeof generateCode === "function"`
)

// hostScript installs window.callHost in every document of the page.
var hostScript = fmt.Sprintf(`window.%s = function (payload) {
  window.%s(JSON.stringify(payload === undefined ? null : payload));
};`, render.HostCallback, bindingName)

// Options configures the Chrome process.
type Options struct {
	ExecPath   string         // Chrome binary; empty uses chromedp's lookup
	Headful    bool           // Show the browser window (debugging)
	NoSandbox  bool           // Required in most containers
	Flags      map[string]any // Extra command-line flags
	ReadyCheck string         // Expression deciding the load status; empty uses DefaultReadyCheck
	Logger     *log.Logger
}

// Browser launches headless Chrome environments.
type Browser struct {
	opts Options
}

// New creates a Browser with the given options.
func New(opts Options) *Browser {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ReadyCheck == "" {
		opts.ReadyCheck = DefaultReadyCheck
	}
	return &Browser{opts: opts}
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("allow-file-access-from-files", true))
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}
	if b.opts.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if b.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	for name, value := range b.opts.Flags {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// Launch starts a Chrome process. ctx bounds the start-up only.
func (b *Browser) Launch(ctx context.Context) (render.Environment, error) {
	base := context.WithoutCancel(ctx)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(base, b.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(b.opts.Logger.Debugf),
		chromedp.WithErrorf(b.opts.Logger.Errorf),
	)

	// Running no actions allocates the browser and its first target.
	if err := runBounded(ctx, browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b.opts.Logger.Debug("chrome started")
	return &Environment{
		browser:       b,
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

// Environment is a running Chrome process.
type Environment struct {
	browser       *Browser
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	closeOnce     sync.Once
}

// NewPage opens a new tab with the host callback binding installed.
func (e *Environment) NewPage(ctx context.Context) (render.Page, error) {
	pageCtx, cancel := chromedp.NewContext(e.ctx)
	p := &Page{
		ctx:        pageCtx,
		cancel:     cancel,
		readyCheck: e.browser.opts.ReadyCheck,
		logger:     e.browser.opts.Logger,
	}
	chromedp.ListenTarget(pageCtx, p.onEvent)

	err := runBounded(ctx, pageCtx,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hostScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create page: %w", err)
	}
	return p, nil
}

// Close terminates the Chrome process.
func (e *Environment) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = chromedp.Cancel(e.ctx)
		e.cancelBrowser()
		e.cancelAlloc()
	})
	return err
}

// Page is a Chrome tab.
type Page struct {
	ctx        context.Context
	cancel     context.CancelFunc
	readyCheck string
	logger     *log.Logger

	mu      sync.RWMutex
	handler func([]byte)
}

// Open navigates to url and evaluates the ready check.
func (p *Page) Open(ctx context.Context, url string) (string, error) {
	var ready bool
	err := runBounded(ctx, p.ctx,
		chromedp.Navigate(url),
		chromedp.Evaluate(p.readyCheck, &ready),
	)
	if err != nil {
		return render.StatusFail, fmt.Errorf("open %s: %w", url, err)
	}
	if !ready {
		return render.StatusFail, nil
	}
	return render.StatusSuccess, nil
}

// OnCallback sets the host callback handler.
func (p *Page) OnCallback(fn func([]byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = fn
}

// Evaluate calls script with args inside the page.
func (p *Page) Evaluate(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	expr, err := callExpression(script, args...)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := runBounded(ctx, p.ctx, chromedp.Evaluate(expr, &raw)); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return json.RawMessage(raw), nil
}

// Close closes the tab.
func (p *Page) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}

func (p *Page) onEvent(ev any) {
	called, ok := ev.(*runtime.EventBindingCalled)
	if !ok || called.Name != bindingName {
		return
	}
	p.mu.RLock()
	fn := p.handler
	p.mu.RUnlock()
	if fn == nil {
		p.logger.Warn("dropping page callback, no handler installed")
		return
	}
	fn([]byte(called.Payload))
}

// callExpression builds "(script)(arg0, arg1, ...)" with JSON-encoded args.
func callExpression(script string, args ...any) (string, error) {
	encoded := make([]string, len(args))
	for i, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("encode argument %d: %w", i, err)
		}
		encoded[i] = string(data)
	}
	return "(" + strings.TrimSpace(script) + ")(" + strings.Join(encoded, ", ") + ")", nil
}

// runBounded runs actions on target, giving up when ctx is done.
// The target context itself is not cancelled when ctx is.
func runBounded(ctx context.Context, target context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(target, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ render.Browser     = (*Browser)(nil)
	_ render.Environment = (*Environment)(nil)
	_ render.Page        = (*Page)(nil)
)
