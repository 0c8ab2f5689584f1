package errors

import (
	"strings"
	"testing"
)

func TestValidateSourcePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"icon.svg", false},
		{"assets/icons/ic_arrow.SVG", false},
		{"/abs/path/logo.svg", false},
		{"", true},
		{"icon.png", true},
		{"icon", true},
		{"bad\x00name.svg", true},
		{"bad\nname.svg", true},
		{strings.Repeat("a", 5000) + ".svg", true},
	}

	for _, tt := range tests {
		err := ValidateSourcePath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSourcePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if err != nil && !Is(err, ErrCodeInvalidPath) {
			t.Errorf("ValidateSourcePath(%q) code = %v, want %v", tt.path, GetCode(err), ErrCodeInvalidPath)
		}
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"ic_arrow.svg", false},
		{"logo", false},
		{"", true},
		{"../etc/passwd", true},
		{"dir/file.svg", true},
		{"dir\\file.svg", true},
		{".hidden", true},
		{"quo\"te.svg", true},
		{strings.Repeat("x", 300), true},
	}

	for _, tt := range tests {
		err := ValidateFilename(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
