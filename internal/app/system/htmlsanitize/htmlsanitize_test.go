package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/projecthub/internal/app/system/htmlsanitize"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Hello, World!", "Hello, World!"},
		{"bold", "<b>Project</b> Alpha", "Project Alpha"},
		{"script", "<script>alert('xss')</script>Name", "Name"},
		{"attributes", `<a href="javascript:alert(1)" onclick="x()">link</a>`, "link"},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"comparison", "5 < 10", "5 < 10"},
		{"whitespace", "  <p> padded </p>  ", "padded"},
		{"only tags", "<div><span></span></div>", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := htmlsanitize.StripTags(tc.input); got != tc.want {
				t.Errorf("StripTags(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"Hello, World!", true},
		{"5 > 3", true},
		{"<p>Hello</p>", false},
		{"<img src=x onerror=alert(1)>", false},
	}

	for _, tc := range tests {
		if got := htmlsanitize.IsPlainText(tc.input); got != tc.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
