package converter

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no token", `<path fill="#fff"/>`, `<path fill="#fff"/>`},
		{"single", `<path fill="currentColor"/>`, `<path fill="#000000"/>`},
		{
			"multiple",
			`<g stroke="currentColor"><path fill="currentColor"/></g>`,
			`<g stroke="#000000"><path fill="#000000"/></g>`,
		},
		{"case sensitive", `fill="currentcolor"`, `fill="currentcolor"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"currentColor",
		"currentColorcurrentColor",
		`<svg><path fill="currentColor" stroke="red"/></svg>`,
		strings.Repeat("currentColor ", 50),
	}
	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestFingerprint(t *testing.T) {
	// Known MD5 vectors
	if got := Fingerprint(""); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("Fingerprint(\"\") = %s", got)
	}
	if got := Fingerprint("hello"); got != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("Fingerprint(\"hello\") = %s", got)
	}

	// Deterministic
	if Fingerprint("<svg/>") != Fingerprint("<svg/>") {
		t.Error("Fingerprint should be deterministic")
	}

	// Distinct inputs
	if Fingerprint("<svg/>") == Fingerprint("<svg />") {
		t.Error("different inputs should produce different fingerprints")
	}
}

func TestFingerprintAfterSanitize(t *testing.T) {
	// Inputs that differ only in the unsupported color collapse to one id.
	a := `<path fill="currentColor"/>`
	b := `<path fill="#000000"/>`
	if Fingerprint(Sanitize(a)) != Fingerprint(Sanitize(b)) {
		t.Error("sanitized fingerprints should match")
	}
}

func TestDecodeSource(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain", []byte(`<svg/>`), `<svg/>`},
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte(`<svg/>`)...), `<svg/>`},
		{
			"utf-8 prolog",
			[]byte(`<?xml version="1.0" encoding="UTF-8"?><svg/>`),
			`<?xml version="1.0" encoding="UTF-8"?><svg/>`,
		},
		{
			"latin-1 prolog",
			[]byte("<?xml version='1.0' encoding='ISO-8859-1'?><svg><title>caf\xe9</title></svg>"),
			"<?xml version='1.0' encoding='ISO-8859-1'?><svg><title>café</title></svg>",
		},
		{
			"encoding outside prolog is ignored",
			[]byte(`<svg data-encoding="latin1"/>`),
			`<svg data-encoding="latin1"/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSource(tt.in)
			if err != nil {
				t.Fatalf("DecodeSource error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeSource() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeSourceUnknownEncoding(t *testing.T) {
	_, err := DecodeSource([]byte(`<?xml version="1.0" encoding="x-no-such-charset"?><svg/>`))
	if err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestSourceID(t *testing.T) {
	id, err := SourceID([]byte(`<path fill="currentColor"/>`))
	if err != nil {
		t.Fatal(err)
	}
	if id != Fingerprint(`<path fill="#000000"/>`) {
		t.Errorf("SourceID = %s, want fingerprint of sanitized text", id)
	}
}
