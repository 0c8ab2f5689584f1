// Package pkg provides the core libraries of svg2avd, an SVG to Android
// Vector Drawable converter.
//
// # Overview
//
// svg2avd does not parse SVG itself. A converter library runs inside a
// headless page and the Go side drives it: it sanitizes and fingerprints the
// input, submits it to the page, and correlates the asynchronous completion
// events with the callers waiting for them. The pkg directory is organized
// into three areas:
//
//  1. Session - [render] hosts the page, [converter] owns the session and
//     the correlation of results
//  2. Orchestration - [pipeline] runs batches through a session with an
//     artifact [cache] in front of it
//  3. Support - [errors], [retry], [observability] and [buildinfo]
//
// # Architecture
//
// The data flow of a single conversion:
//
//	SVG file
//	    ↓
//	[cache] lookup by content fingerprint
//	    ↓ (miss)
//	[converter] sanitize → fingerprint → submit
//	    ↓
//	[render] page runs the converter, emits {id, code, warnings, exc}
//	    ↓
//	[converter] router settles every waiter for id
//	    ↓
//	Vector drawable XML (cached on success)
//
// # Quick Start
//
//	conv := converter.New(chrome.New(chrome.Options{}), converter.Options{
//	    EntryURL: "file:///opt/svg2android/index.html",
//	})
//	if err := conv.Start(ctx); err != nil {
//	    return err
//	}
//	defer conv.End()
//
//	runner := pipeline.NewRunner(conv, cache.NewNullCache(), nil, nil)
//	results, _ := runner.ConvertAll(ctx, []string{"a.svg", "b.svg"}, 4)
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Chrome, Redis and MongoDB tests
//
// [render]: https://pkg.go.dev/github.com/matzehuels/svg2avd/pkg/render
// [converter]: https://pkg.go.dev/github.com/matzehuels/svg2avd/pkg/converter
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/svg2avd/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/svg2avd/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/svg2avd/pkg/errors
// [retry]: https://pkg.go.dev/github.com/matzehuels/svg2avd/pkg/retry
// [observability]: https://pkg.go.dev/github.com/matzehuels/svg2avd/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/svg2avd/pkg/buildinfo
package pkg
