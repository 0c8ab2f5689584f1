package converter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

// Result is a completion event emitted by the converter page.
type Result struct {
	ID        string     `json:"id"`
	Code      string     `json:"code,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
	Exception *Exception `json:"exc,omitempty"`
}

// Err interprets r: any warning fails the conversion even when code is
// present, then an exception does. A nil error means Code is the artifact.
func (r *Result) Err() error {
	if len(r.Warnings) > 0 {
		return &errs.WarningsError{ID: r.ID, Warnings: r.Warnings}
	}
	if r.Exception != nil {
		return errs.Wrap(errs.ErrCodeConversionFailed, r.Exception, "converter raised an exception")
	}
	return nil
}

// Exception is an error thrown by the converter library.
type Exception struct {
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Exception) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

var (
	errNotObject = errors.New("payload is not an object")
	errMissingID = errors.New("payload has no correlation id")
)

// wireResult mirrors the loosely typed payload posted by the page.
type wireResult struct {
	ID       any             `json:"id"`
	Code     json.RawMessage `json:"code"`
	Warnings json.RawMessage `json:"warnings"`
	Exc      json.RawMessage `json:"exc"`
}

// decodeResult validates and decodes a completion payload.
func decodeResult(payload []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotObject
	}

	var w wireResult
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	id, _ := w.ID.(string)
	if id == "" {
		return nil, errMissingID
	}

	res := &Result{
		ID:        id,
		Warnings:  decodeWarnings(w.Warnings),
		Exception: decodeException(w.Exc),
	}
	if !falsy(w.Code) {
		if err := json.Unmarshal(w.Code, &res.Code); err != nil {
			res.Code = string(w.Code)
		}
	}
	return res, nil
}

// falsy reports whether a JSON value is absent or false-like in JavaScript.
func falsy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

// decodeWarnings accepts a list of warnings (strings or arbitrary values) or
// a single warning.
func decodeWarnings(raw json.RawMessage) []string {
	if falsy(raw) {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{jsonText(raw)}
	}

	warnings := make([]string, 0, len(items))
	for _, item := range items {
		warnings = append(warnings, jsonText(item))
	}
	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

// decodeException accepts {name, message}, a bare string, or anything else.
func decodeException(raw json.RawMessage) *Exception {
	if falsy(raw) {
		return nil
	}

	var exc Exception
	if err := json.Unmarshal(raw, &exc); err == nil && (exc.Message != "" || exc.Name != "") {
		return &exc
	}
	return &Exception{Message: jsonText(raw)}
}

// jsonText returns a JSON string's value, or the raw JSON of anything else.
func jsonText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
