package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/svg2avd/pkg/observability"
	"github.com/matzehuels/svg2avd/pkg/render"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

// State is the lifecycle state of a render session.
type State int

const (
	StateUnstarted State = iota
	StateStarting
	StateReady
	StateEnded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Converter.
type Options struct {
	// EntryURL is the converter page loaded at Start.
	EntryURL string

	// RequestTimeout bounds each conversion. Zero waits forever.
	RequestTimeout time.Duration

	Logger *log.Logger
}

// Converter owns one render session: a render environment, one page with the
// converter loaded, and the router correlating its completion events.
//
// All methods are safe for concurrent use.
type Converter struct {
	browser render.Browser
	opts    Options
	id      string
	logger  *log.Logger

	mu     sync.RWMutex
	state  State
	env    render.Environment
	page   render.Page
	router *Router
}

// New creates an unstarted Converter using browser to host the session.
func New(browser render.Browser, opts Options) *Converter {
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Converter{
		browser: browser,
		opts:    opts,
		id:      id,
		logger:  logger.With("session", id[:8]),
	}
}

// SessionID returns the unique id of this session.
func (c *Converter) SessionID() string {
	return c.id
}

// State returns the current lifecycle state.
func (c *Converter) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Pending returns the number of conversions waiting for a completion.
func (c *Converter) Pending() int {
	c.mu.RLock()
	router := c.router
	c.mu.RUnlock()
	if router == nil {
		return 0
	}
	return router.Pending()
}

// Start launches the render environment, creates a page and loads the entry
// document into it. The session is ready only if the page reports a success
// status. On failure everything created is torn down and the session returns
// to StateUnstarted, so Start may be called again; there are no retries here.
func (c *Converter) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUnstarted {
		state := c.state
		c.mu.Unlock()
		return errs.New(errs.ErrCodeSessionState, "cannot start a session that is %s", state)
	}
	c.state = StateStarting
	c.mu.Unlock()

	start := time.Now()
	env, page, router, err := c.open(ctx)
	observability.Session().OnSessionStart(ctx, c.id, time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if c.state == StateStarting {
			c.state = StateUnstarted
		}
		c.logger.Error("conversion session failed to start", "err", err)
		return err
	}

	if c.state == StateEnded {
		router.Close(errs.New(errs.ErrCodeSessionClosed, "conversion session ended"))
		_ = page.Close()
		_ = env.Close()
		return errs.New(errs.ErrCodeSessionClosed, "session ended while starting")
	}

	c.env, c.page, c.router = env, page, router
	c.state = StateReady
	c.logger.Info("conversion session ready", "entry", c.opts.EntryURL, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// open runs the start-up sequence and cleans up after a failed step.
func (c *Converter) open(ctx context.Context) (render.Environment, render.Page, *Router, error) {
	env, err := c.browser.Launch(ctx)
	if err != nil {
		return nil, nil, nil, errs.Wrap(errs.ErrCodeSessionStart, err, "launch render environment")
	}

	page, err := env.NewPage(ctx)
	if err != nil {
		_ = env.Close()
		return nil, nil, nil, errs.Wrap(errs.ErrCodeSessionStart, err, "create page")
	}

	status, err := page.Open(ctx, c.opts.EntryURL)
	if err == nil && status != render.StatusSuccess {
		err = errs.New(errs.ErrCodeSessionStart, "load %s: status %q", c.opts.EntryURL, status)
	} else if err != nil {
		err = errs.Wrap(errs.ErrCodeSessionStart, err, "load %s", c.opts.EntryURL)
	}
	if err != nil {
		_ = page.Close()
		_ = env.Close()
		return nil, nil, nil, err
	}

	router := NewRouter(c.logger)
	page.OnCallback(router.Dispatch)
	return env, page, router, nil
}

// End closes the page, terminates the environment and rejects every pending
// conversion with a SESSION_CLOSED error. It is safe to call in any state and
// more than once.
func (c *Converter) End() error {
	c.mu.Lock()
	prev := c.state
	env, page, router := c.env, c.page, c.router
	c.env, c.page, c.router = nil, nil, nil
	c.state = StateEnded
	c.mu.Unlock()

	if prev == StateEnded {
		return nil
	}

	abandoned := 0
	if router != nil {
		abandoned = router.Close(errs.New(errs.ErrCodeSessionClosed, "conversion session ended"))
	}

	var closeErrs []error
	if page != nil {
		if err := page.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("close page: %w", err))
		}
	}
	if env != nil {
		if err := env.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("close render environment: %w", err))
		}
	}

	observability.Session().OnSessionEnd(context.Background(), c.id, abandoned)
	if abandoned > 0 {
		c.logger.Warn("conversion session ended with pending conversions", "abandoned", abandoned)
	} else {
		c.logger.Debug("conversion session ended")
	}
	return errors.Join(closeErrs...)
}

// Submit starts converting the SVG file at path without waiting for the
// result. The only error returned directly is NO_SESSION when the session is
// not ready; read failures and conversion outcomes are delivered through the
// Job.
func (c *Converter) Submit(ctx context.Context, path string) (*Job, error) {
	if err := c.checkReady(); err != nil {
		return nil, err
	}

	job := newJob(path)
	data, err := os.ReadFile(path)
	if err != nil {
		code := errs.ErrCodeIO
		if errors.Is(err, os.ErrNotExist) {
			code = errs.ErrCodeFileNotFound
		}
		job.settle(nil, errs.Wrap(code, err, "read %s", path))
		return job, nil
	}
	return c.submit(ctx, job, data), nil
}

// SubmitSource is Submit for SVG content already in memory. name identifies
// the content in logs and errors.
func (c *Converter) SubmitSource(ctx context.Context, name string, data []byte) (*Job, error) {
	if err := c.checkReady(); err != nil {
		return nil, err
	}
	return c.submit(ctx, newJob(name), data), nil
}

// Convert submits the file at path and waits for its result.
func (c *Converter) Convert(ctx context.Context, path string) (*Result, error) {
	job, err := c.Submit(ctx, path)
	if err != nil {
		return nil, err
	}
	return job.Wait(ctx)
}

func (c *Converter) checkReady() error {
	if c.State() != StateReady {
		return errs.New(errs.ErrCodeNoSession, "there is no conversion session open")
	}
	return nil
}

// submit sanitizes and fingerprints data, registers job under the
// fingerprint and, unless the same content is already in flight, hands it to
// the page.
func (c *Converter) submit(ctx context.Context, job *Job, data []byte) *Job {
	text, id, err := prepare(data)
	if err != nil {
		job.settle(nil, errs.Wrap(errs.ErrCodeIO, err, "read %s", job.Name))
		return job
	}
	job.ID = id

	c.mu.RLock()
	page, router := c.page, c.router
	c.mu.RUnlock()
	if page == nil {
		job.settle(nil, errs.New(errs.ErrCodeNoSession, "there is no conversion session open"))
		return job
	}

	observability.Conversion().OnConvertStart(ctx, job.ID, job.Name)
	reg, first := router.Register(job.ID, job.complete)
	job.attach(router, reg, c.opts.RequestTimeout)
	if !first {
		c.logger.Debug("joined in-flight conversion", "id", job.ID, "name", job.Name)
		return job
	}

	// Later submitters may join this evaluation, so it must not end with the
	// first caller's context. It is bounded by the request timeout instead,
	// and by End closing the page.
	evalCtx := context.WithoutCancel(ctx)
	if d := c.opts.RequestTimeout; d > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(evalCtx, d)
		defer cancel()
	}
	ack, err := page.Evaluate(evalCtx, jobScript, text, job.ID)
	if err != nil {
		code := errs.ErrCodeConversionFailed
		if errors.Is(err, context.DeadlineExceeded) {
			code = errs.ErrCodeTimeout
		}
		router.Fail(job.ID, errs.Wrap(code, err, "submit %s to render page", job.Name))
		return job
	}
	c.logger.Debug("conversion submitted", "id", job.ID, "name", job.Name, "ack", string(ack))
	return job
}
