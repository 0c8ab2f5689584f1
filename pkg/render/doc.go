// Package render defines the boundary to the headless environment that hosts
// the embedded SVG to Android Vector Drawable converter.
//
// # Overview
//
// The conversion itself happens inside a browser page: the entry document
// loads the converter library, and jobs are run by evaluating a script in
// that page. Results come back asynchronously through a host callback
// channel, not through the return value of the evaluation.
//
// The package only holds interfaces; implementations live in subpackages:
//
//   - [chrome]: headless Chrome driven through the DevTools protocol
//   - [fake]: in-memory page with scripted outcomes, for tests
//
// # Lifecycle
//
//	env, err := browser.Launch(ctx)        // spawn the environment
//	page, err := env.NewPage(ctx)          // one execution context
//	page.OnCallback(router.Dispatch)       // completion events
//	status, err := page.Open(ctx, url)     // "success" when loaded
//	ack, err := page.Evaluate(ctx, script, svg, id)
//	page.Close()
//	env.Close()
//
// # Callback Channel
//
// Scripts emit payloads by calling window.callHost(payload) with any
// JSON-serialisable value. The page delivers the JSON encoding of payload to
// the handler registered with [Page.OnCallback].
//
// [chrome]: github.com/matzehuels/svg2avd/pkg/render/chrome
// [fake]: github.com/matzehuels/svg2avd/pkg/render/fake
package render
