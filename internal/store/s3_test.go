package store

import "testing"

func TestNormalizePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"exports", "exports/"},
		{"exports/", "exports/"},
		{"/exports", "exports/"},
		{"/exports/", "exports/"},
		{"exports/photos", "exports/photos/"},
	}
	for _, tt := range tests {
		if got := normalizePrefix(tt.in); got != tt.want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestS3KeyMapping(t *testing.T) {
	t.Parallel()

	t.Run("with a base prefix", func(t *testing.T) {
		t.Parallel()
		s := &S3Store{prefix: normalizePrefix("exports")}
		if got := s.objectKey("photos/img_0470.jpg"); got != "exports/photos/img_0470.jpg" {
			t.Errorf("objectKey() = %q, want %q", got, "exports/photos/img_0470.jpg")
		}
		if got := s.folderKey("photos"); got != "exports/photos/" {
			t.Errorf("folderKey() = %q, want %q", got, "exports/photos/")
		}
		if got := s.folderKey(""); got != "exports/" {
			t.Errorf("folderKey(root) = %q, want %q", got, "exports/")
		}
	})

	t.Run("without a prefix", func(t *testing.T) {
		t.Parallel()
		s := &S3Store{}
		if got := s.objectKey("a.txt"); got != "a.txt" {
			t.Errorf("objectKey() = %q, want %q", got, "a.txt")
		}
		if got := s.folderKey("photos"); got != "photos/" {
			t.Errorf("folderKey() = %q, want %q", got, "photos/")
		}
		if got := s.folderKey(""); got != "" {
			t.Errorf("folderKey(root) = %q, want %q", got, "")
		}
	})
}
