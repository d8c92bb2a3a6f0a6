package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("service: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty falls back to default",
			in:   "",
			want: defaultConfigPath,
		},
		{
			name: "directory resolves config.yaml inside it",
			in:   dir,
			want: filepath.Join(dir, "config.yaml"),
		},
		{
			name: "file path passes through",
			in:   filepath.Join(dir, "config.yaml"),
			want: filepath.Join(dir, "config.yaml"),
		},
		{
			name: "nonexistent path passes through untouched",
			in:   "/nonexistent/config.yaml",
			want: "/nonexistent/config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveConfigPath(tt.in); got != tt.want {
				t.Errorf("resolveConfigPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
