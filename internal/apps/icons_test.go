package apps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chess10kp/bluepanel/internal/config"
)

func newTestResolver(t *testing.T) (*IconResolver, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Icons.Root = root
	return NewIconResolver(cfg), root
}

func touchIcon(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create icon dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("icon"), 0644); err != nil {
		t.Fatalf("Failed to write icon: %v", err)
	}
}

func TestIconResolver_Resolve(t *testing.T) {
	resolver, root := newTestResolver(t)
	touchIcon(t, root, "breeze/apps/48/editor.svg")
	touchIcon(t, root, "breeze/apps/32/editor.png")
	touchIcon(t, root, "breeze/apps/64/terminal.svg")
	touchIcon(t, root, "breeze/apps/64/terminal.png")

	tests := []struct {
		icon string
		want string
	}{
		{"", ""},
		{"editor", "http://localhost:3000/usr/share/icons/breeze/apps/48/editor.svg"},
		{"terminal", "http://localhost:3000/usr/share/icons/breeze/apps/64/terminal.png"},
		{"missing", "https://via.placeholder.com/72"},
		{"../../etc/passwd", "https://via.placeholder.com/72"},
		{"/usr/share/pixmaps/editor", "https://via.placeholder.com/72"},
	}

	for _, tt := range tests {
		if got := resolver.Resolve(tt.icon); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.icon, got, tt.want)
		}
	}
}

func TestIconResolver_IgnoresDirectories(t *testing.T) {
	resolver, root := newTestResolver(t)
	if err := os.MkdirAll(filepath.Join(root, "breeze/apps/64/weird.png"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	if got := resolver.Resolve("weird"); got != "https://via.placeholder.com/72" {
		t.Errorf("Expected placeholder for directory match, got %q", got)
	}
}

func TestIconResolver_NoCaching(t *testing.T) {
	resolver, root := newTestResolver(t)

	if got := resolver.Resolve("late"); got != "https://via.placeholder.com/72" {
		t.Fatalf("Expected placeholder before install, got %q", got)
	}

	touchIcon(t, root, "breeze/apps/32/late.png")
	if got := resolver.Resolve("late"); got != "http://localhost:3000/usr/share/icons/breeze/apps/32/late.png" {
		t.Errorf("Expected newly installed icon to resolve, got %q", got)
	}
}
