// Package pipeline runs batches of SVG conversions against one render
// session, with an artifact cache in front of it.
//
// This package is shared by the CLI and the HTTP server so that both look up
// and store results the same way.
//
// # Usage
//
//	conv, err := pipeline.Open(ctx, func() *converter.Converter {
//	    return converter.New(chrome.New(chrome.Options{}), converter.Options{EntryURL: entry})
//	})
//	if err != nil {
//	    return err
//	}
//	defer conv.End()
//
//	runner := pipeline.NewRunner(conv, fileCache, nil, logger)
//	results, err := runner.ConvertAll(ctx, paths, 4)
//	for _, r := range results {
//	    if r.Err == nil {
//	        os.WriteFile(pipeline.OutputName(r.Source), []byte(r.Code), 0o644)
//	    }
//	}
package pipeline

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultConcurrency bounds how many files ConvertAll keeps in flight.
const DefaultConcurrency = 4

// ArtifactFormat names the stored artifact type in cache keys.
const ArtifactFormat = "avd"

// Result is the outcome of converting one source.
type Result struct {
	// Source is the path or name of the converted SVG.
	Source string `json:"source"`

	// ID is the fingerprint of the sanitized content. Empty when the source
	// could not be read.
	ID string `json:"id,omitempty"`

	// Code is the vector drawable XML.
	Code string `json:"code,omitempty"`

	// Cached reports whether Code came from the cache.
	Cached bool `json:"cached"`

	Duration time.Duration `json:"duration"`

	// Err is set by ConvertAll for failed sources.
	Err error `json:"-"`
}

// OutputName returns the Android resource file name for an SVG path:
// lower case, characters outside [a-z0-9_] replaced by '_', "ic_" prefixed
// when the name would not start with a letter, and ".xml" appended.
//
//	OutputName("icons/Arrow-Left.svg") // "arrow_left.xml"
//	OutputName("24px.svg")             // "ic_24px.xml"
func OutputName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	name := b.String()
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "ic_" + name
	}
	return name + ".xml"
}
