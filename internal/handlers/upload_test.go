package handlers

import "testing"

func TestPhotoExtAllowed(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".jpg", true},
		{".jpeg", true},
		{".png", true},
		{".webp", true},
		{".JPG", true},
		{".PnG", true},
		{".gif", false},
		{".heic", false},
		{".jpg.exe", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := photoExtAllowed(tt.ext); got != tt.want {
			t.Errorf("photoExtAllowed(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}
