package pipeline

import "testing"

func TestOutputName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"arrow.svg", "arrow.xml"},
		{"icons/Arrow-Left.svg", "arrow_left.xml"},
		{"/abs/path/ic_home_24.SVG", "ic_home_24.xml"},
		{"24px.svg", "ic_24px.xml"},
		{"my icon (1).svg", "my_icon__1_.xml"},
		{".svg", "ic_.xml"},
		{"_private.svg", "ic__private.xml"},
		{"café.svg", "caf_.xml"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := OutputName(tt.path); got != tt.want {
				t.Errorf("OutputName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
