package converter

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/svg2avd/pkg/observability"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

var errJobPending = errs.New(errs.ErrCodeInternal, "conversion is still pending")

// Job is a submitted conversion. It settles exactly once, when the matching
// completion event arrives, the request times out, the caller abandons it, or
// the session ends.
type Job struct {
	// ID is the correlation id; empty if the job failed before the content
	// could be fingerprinted.
	ID string

	// Name is the source path, or the name given to SubmitSource.
	Name string

	submitted time.Time
	done      chan struct{}

	mu     sync.Mutex
	res    *Result
	err    error
	router *Router
	reg    *Registration
	timer  *time.Timer
}

func newJob(name string) *Job {
	return &Job{
		Name:      name,
		submitted: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed when the job has settled.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Result returns the outcome of a settled job without blocking.
func (j *Job) Result() (*Result, error) {
	select {
	case <-j.done:
		return j.res, j.err
	default:
		return nil, errJobPending
	}
}

// Wait blocks until the job settles or ctx is done. Cancelling ctx abandons
// the job: it is removed from the router and settles with ctx.Err().
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
		return j.res, j.err
	case <-ctx.Done():
	}

	j.mu.Lock()
	router, reg := j.router, j.reg
	j.mu.Unlock()

	if router.Remove(reg) {
		j.settle(nil, ctx.Err())
	}
	// Either settled above or a completion is being delivered right now.
	<-j.done
	return j.res, j.err
}

// complete is the router handler: it interprets the completion.
func (j *Job) complete(res *Result, err error) {
	if err == nil {
		if err = res.Err(); err != nil {
			res = nil
		}
	}
	j.settle(res, err)
}

// attach links the job to its router registration and arms the timeout.
func (j *Job) attach(router *Router, reg *Registration, timeout time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.router, j.reg = router, reg

	if timeout <= 0 || j.settledLocked() {
		return
	}
	j.timer = time.AfterFunc(timeout, func() {
		if router.Remove(reg) {
			j.settle(nil, errs.New(errs.ErrCodeTimeout, "conversion of %s timed out after %s", j.Name, timeout))
		}
	})
}

// settle records the outcome once and reports whether this call settled it.
func (j *Job) settle(res *Result, err error) bool {
	j.mu.Lock()
	if j.settledLocked() {
		j.mu.Unlock()
		return false
	}
	j.res, j.err = res, err
	if j.timer != nil {
		j.timer.Stop()
	}
	close(j.done)
	j.mu.Unlock()

	if j.ID != "" {
		observability.Conversion().OnConvertComplete(context.Background(), j.ID, time.Since(j.submitted), err)
	}
	return true
}

func (j *Job) settledLocked() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}
