package converter

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	// unsupportedColor is resolved by the browser from CSS context, which
	// vector drawables have no equivalent for.
	unsupportedColor = "currentColor"

	// fallbackColor replaces unsupportedColor.
	fallbackColor = "#000000"
)

// Sanitize prepares SVG text for the converter by replacing every
// currentColor reference with black. It is idempotent.
func Sanitize(text string) string {
	return strings.ReplaceAll(text, unsupportedColor, fallbackColor)
}

// Fingerprint returns the hex MD5 of text. It is used as the correlation id
// of a conversion and must be computed on sanitized text.
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	// xmlEncoding matches the encoding declaration of an XML prolog.
	xmlEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*?\bencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
)

// DecodeSource returns SVG file content as UTF-8 text. Content whose XML
// prolog declares another encoding (ISO-8859-1, windows-1252, ...) is
// transcoded; everything else is taken as UTF-8.
func DecodeSource(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	m := xmlEncoding.FindSubmatch(data)
	if m == nil {
		return string(data), nil
	}
	label := strings.ToLower(string(m[1]))
	if label == "utf-8" || label == "utf8" {
		return string(data), nil
	}

	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", label, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", label, err)
	}
	return string(out), nil
}

// prepare decodes, sanitizes and fingerprints SVG file content.
func prepare(data []byte) (text, id string, err error) {
	text, err = DecodeSource(data)
	if err != nil {
		return "", "", err
	}
	text = Sanitize(text)
	return text, Fingerprint(text), nil
}

// SourceID returns the correlation id that SVG file content would be
// submitted under.
func SourceID(data []byte) (string, error) {
	_, id, err := prepare(data)
	return id, err
}
