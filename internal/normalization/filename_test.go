package normalization

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "cat.jpg", "cat.jpg"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"spaces and symbols", "my photo (1).png", "my_photo__1_.png"},
		{"empty", "", "upload"},
		{"just dots", "...", "upload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeFilename(tc.input); got != tc.want {
				t.Fatalf("SanitizeFilename(%q): got=%q want=%q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	input := strings.Repeat("a", 500) + ".png"
	got := SanitizeFilename(input)
	if len(got) != maxSafeFilenameBytes {
		t.Fatalf("expected length %d, got %d", maxSafeFilenameBytes, len(got))
	}
}
