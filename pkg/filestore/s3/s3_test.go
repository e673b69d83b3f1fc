package s3

import "testing"

func TestContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"rapbattle_final.mp3", "audio/mpeg"},
		{"rapbattle_metadata.json", "application/json"},
		{"rapbattle.txt", "text/plain; charset=utf-8"},
		{"timeline.csv", "text/csv"},
		{"wave.jpg", "image/jpeg"},
		{"blob", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := ContentType(tt.path); got != tt.want {
			t.Errorf("ContentType(%q) = %q; want %q", tt.path, got, tt.want)
		}
	}
}
