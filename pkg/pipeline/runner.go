package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/svg2avd/pkg/cache"
	"github.com/matzehuels/svg2avd/pkg/converter"
	"github.com/matzehuels/svg2avd/pkg/observability"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

// cacheKeyType labels artifact lookups in cache hooks.
const cacheKeyType = "artifact"

// Session is the part of a converter session the runner needs.
type Session interface {
	SubmitSource(ctx context.Context, name string, data []byte) (*converter.Job, error)
}

// Runner converts sources through a session with caching.
//
// The Runner holds no per-conversion state; multiple goroutines can safely
// use the same Runner.
type Runner struct {
	Session Session
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger

	// KeyOpts are mixed into every cache key, typically the converter entry
	// URL so artifacts from different converter builds stay apart.
	KeyOpts cache.ArtifactKeyOpts

	// TTL of stored artifacts.
	TTL time.Duration

	// Refresh skips cache lookups but still stores results.
	Refresh bool

	// Progress, if set, is called by ConvertAll as each source finishes.
	// It may be called from several goroutines at once.
	Progress func(*Result)
}

// NewRunner creates a runner for session.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(session Session, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Session: session,
		Cache:   c,
		Keyer:   keyer,
		Logger:  logger,
		KeyOpts: cache.ArtifactKeyOpts{Format: ArtifactFormat},
		TTL:     cache.TTLArtifact,
	}
}

// Convert reads and converts the SVG file at path.
func (r *Runner) Convert(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errs.ErrCodeIO
		if errors.Is(err, os.ErrNotExist) {
			code = errs.ErrCodeFileNotFound
		}
		return &Result{Source: path}, errs.Wrap(code, err, "read %s", path)
	}
	return r.ConvertSource(ctx, path, data)
}

// ConvertSource converts SVG content. A cached artifact for the same
// sanitized content is returned without touching the session; successful
// conversions are stored. Failures, warnings included, are never cached.
func (r *Runner) ConvertSource(ctx context.Context, name string, data []byte) (*Result, error) {
	start := time.Now()
	res := &Result{Source: name}

	id, err := converter.SourceID(data)
	if err != nil {
		return res, errs.Wrap(errs.ErrCodeIO, err, "read %s", name)
	}
	res.ID = id
	key := r.Keyer.ArtifactKey(id, r.KeyOpts)

	if !r.Refresh {
		if code, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, cacheKeyType)
			res.Code, res.Cached = string(code), true
			res.Duration = time.Since(start)
			r.Logger.Debug("cache hit", "source", name, "id", id)
			return res, nil
		} else if err != nil {
			r.Logger.Warn("cache lookup failed", "source", name, "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
	}

	job, err := r.Session.SubmitSource(ctx, name, data)
	if err != nil {
		return res, err
	}
	out, err := job.Wait(ctx)
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	res.Code = out.Code

	if err := r.Cache.Set(ctx, key, []byte(out.Code), r.TTL); err != nil {
		r.Logger.Warn("cache store failed", "source", name, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, cacheKeyType, len(out.Code))
	}

	r.Logger.Info("converted", "source", name, "duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// ConvertAll converts paths with at most concurrency conversions in flight
// (DefaultConcurrency when concurrency <= 0). Per-file failures are
// reported in Result.Err; results are in the order of paths. The error is
// non-nil only if ctx was cancelled.
func (r *Runner) ConvertAll(ctx context.Context, paths []string, concurrency int) ([]*Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*Result, len(paths))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := r.Convert(ctx, path)
			res.Err = err
			results[i] = res
			if err != nil {
				r.Logger.Debug("conversion failed", "source", path, "err", err)
			}
			if r.Progress != nil {
				r.Progress(res)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
