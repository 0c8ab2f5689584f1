// Package converter runs SVG to Android Vector Drawable conversions inside a
// render session and correlates their asynchronous results.
//
// # Overview
//
// The conversion itself is done by a converter library loaded in a headless
// page (see [render]). This package owns everything around it:
//
//   - [Sanitize] rewrites tokens the converter cannot handle
//   - [Fingerprint] derives the correlation id from sanitized content
//   - [Converter] owns the render session: Start, Submit, Convert, End
//   - [Router] maps correlation ids to waiting jobs and dispatches the
//     completion events emitted by the page
//
// # Usage
//
//	conv := converter.New(chrome.New(chrome.Options{}), converter.Options{
//	    EntryURL:       "file:///opt/svg2android/index.html",
//	    RequestTimeout: 30 * time.Second,
//	})
//	if err := conv.Start(ctx); err != nil {
//	    return err
//	}
//	defer conv.End()
//
//	res, err := conv.Convert(ctx, "icons/arrow.svg")
//	if err != nil {
//	    var w *errors.WarningsError
//	    if errors.As(err, &w) {
//	        // unsupported features such as gradients
//	    }
//	    return err
//	}
//	fmt.Println(res.Code)
//
// # Correlation
//
// Jobs are keyed by the MD5 of their sanitized content, so completions may
// arrive in any order. Submitting identical content while a conversion is in
// flight joins that conversion instead of running it twice; every waiter is
// settled by the single completion and then removed from the table.
//
// [render]: github.com/matzehuels/svg2avd/pkg/render
package converter
