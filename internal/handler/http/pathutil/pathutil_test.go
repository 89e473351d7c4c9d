package pathutil

import (
	"errors"
	"testing"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		prefix  string
		want    int64
		wantErr bool
	}{
		{name: "valid id", path: "/dlq/42", prefix: "/dlq/", want: 42},
		{name: "large id", path: "/dlq/9223372036854775807", prefix: "/dlq/", want: 9223372036854775807},
		{name: "zero rejected", path: "/dlq/0", prefix: "/dlq/", wantErr: true},
		{name: "negative rejected", path: "/dlq/-5", prefix: "/dlq/", wantErr: true},
		{name: "non numeric", path: "/dlq/abc", prefix: "/dlq/", wantErr: true},
		{name: "empty segment", path: "/dlq/", prefix: "/dlq/", wantErr: true},
		{name: "trailing slash", path: "/dlq/42/", prefix: "/dlq/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractID(tt.path, tt.prefix)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Errorf("expected ErrInvalidID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/dlq/42", "/dlq/:id"},
		{"/dlq/42/", "/dlq/:id"},
		{"/dlq/42?confirm=true", "/dlq/:id"},
		{"/articles/12345", "/articles/:id"},
		{"/dlq", "/dlq"},
		{"/backfill/status", "/backfill/status"},
		{"/backfill/collect/start", "/backfill/collect/start"},
		{"/duplicates?min=3", "/duplicates"},
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/dlq/abc", "/dlq/abc"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
