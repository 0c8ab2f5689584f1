package converter

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/svg2avd/pkg/observability"
)

// maxLoggedPayload bounds how much of a rejected payload is logged.
const maxLoggedPayload = 256

// Handler receives the outcome of a conversion: a decoded result, or an
// error when the conversion could not complete (submission failure, session
// end, ...).
type Handler func(res *Result, err error)

// Registration is one waiter for a correlation id.
type Registration struct {
	ID      string
	handler Handler
}

// Router maps correlation ids to waiting handlers and dispatches the
// completion events emitted by the render page.
//
// Several handlers may wait on one id; a completion settles all of them and
// removes them from the table. Router is safe for concurrent use; handlers
// are invoked without holding the lock.
type Router struct {
	logger *log.Logger

	mu       sync.Mutex
	pending  map[string][]*Registration
	closeErr error
}

// NewRouter creates an empty router. A nil logger uses log.Default().
func NewRouter(logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{
		logger:  logger,
		pending: make(map[string][]*Registration),
	}
}

// Register adds h as a waiter for id. It reports submit=true when no other
// waiter for id exists, meaning the caller is responsible for running the
// conversion; otherwise the caller joins the one in flight.
//
// On a closed router h is invoked immediately with the close error and
// submit is false.
func (r *Router) Register(id string, h Handler) (reg *Registration, submit bool) {
	reg = &Registration{ID: id, handler: h}

	r.mu.Lock()
	if err := r.closeErr; err != nil {
		r.mu.Unlock()
		h(nil, err)
		return reg, false
	}
	submit = len(r.pending[id]) == 0
	r.pending[id] = append(r.pending[id], reg)
	r.mu.Unlock()

	return reg, submit
}

// Remove drops reg without invoking it. It reports whether reg was still
// waiting.
func (r *Router) Remove(reg *Registration) bool {
	if reg == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	regs := r.pending[reg.ID]
	for i, other := range regs {
		if other == reg {
			regs = append(regs[:i], regs[i+1:]...)
			if len(regs) == 0 {
				delete(r.pending, reg.ID)
			} else {
				r.pending[reg.ID] = regs
			}
			return true
		}
	}
	return false
}

// Dispatch handles one completion payload. Payloads that are not objects
// with a correlation id, or whose id nobody waits for, are logged and
// dropped; they never reach a caller.
func (r *Router) Dispatch(payload []byte) {
	res, err := decodeResult(payload)
	if err != nil {
		r.logger.Warn("invalid response from render page", "err", err, "payload", truncate(payload))
		observability.Conversion().OnCallbackDropped(context.Background(), err.Error())
		return
	}

	regs := r.take(res.ID)
	if len(regs) == 0 {
		r.logger.Warn("unable to find callback for conversion", "id", res.ID)
		observability.Conversion().OnCallbackDropped(context.Background(), "no pending request")
		return
	}

	r.logger.Debug("conversion completed", "id", res.ID, "waiters", len(regs))
	for _, reg := range regs {
		reg.handler(res, nil)
	}
}

// Fail settles every waiter for id with err and returns how many there were.
func (r *Router) Fail(id string, err error) int {
	regs := r.take(id)
	for _, reg := range regs {
		reg.handler(nil, err)
	}
	return len(regs)
}

// Close fails every waiter with err and makes later registrations fail with
// err too. It returns the number of waiters settled.
func (r *Router) Close(err error) int {
	r.mu.Lock()
	if r.closeErr != nil {
		r.mu.Unlock()
		return 0
	}
	r.closeErr = err
	pending := r.pending
	r.pending = make(map[string][]*Registration)
	r.mu.Unlock()

	n := 0
	for _, regs := range pending {
		for _, reg := range regs {
			reg.handler(nil, err)
			n++
		}
	}
	return n
}

// Pending returns the number of waiting handlers.
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, regs := range r.pending {
		n += len(regs)
	}
	return n
}

// take removes and returns the waiters for id.
func (r *Router) take(id string) []*Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	regs := r.pending[id]
	delete(r.pending, id)
	return regs
}

func truncate(payload []byte) string {
	if len(payload) > maxLoggedPayload {
		return string(payload[:maxLoggedPayload]) + "..."
	}
	return string(payload)
}
