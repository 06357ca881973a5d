package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	ResetHome()
	t.Setenv("JAVAGUI_HOME", "/custom/path")

	if got := GetHome(); got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_Fallback(t *testing.T) {
	ResetHome()
	t.Setenv("JAVAGUI_HOME", "")

	if got := GetHome(); got == "" {
		t.Error("GetHome() returned empty string")
	}
}

func TestGetHome_Cached(t *testing.T) {
	ResetHome()
	t.Setenv("JAVAGUI_HOME", "/first")
	first := GetHome()

	t.Setenv("JAVAGUI_HOME", "/second")
	if second := GetHome(); first != second {
		t.Errorf("GetHome() not cached: first=%q, second=%q", first, second)
	}
}

func TestHomeDirs(t *testing.T) {
	ResetHome()
	t.Setenv("JAVAGUI_HOME", "/test/home")

	if got, want := GetLogsDir(), filepath.Join("/test/home", "logs"); got != want {
		t.Errorf("GetLogsDir() = %q, want %q", got, want)
	}
	if got, want := GetSnapshotsDir(), filepath.Join("/test/home", "snapshots"); got != want {
		t.Errorf("GetSnapshotsDir() = %q, want %q", got, want)
	}
}

func TestFindSnapshot(t *testing.T) {
	home := t.TempDir()
	ResetHome()
	defer ResetHome()
	t.Setenv("JAVAGUI_HOME", home)

	snapDir := filepath.Join(home, "snapshots")
	if err := os.MkdirAll(snapDir, 0755); err != nil {
		t.Fatal(err)
	}
	stored := filepath.Join(snapDir, "login.json")
	if err := os.WriteFile(stored, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	local := filepath.Join(t.TempDir(), "orders.yaml")
	if err := os.WriteFile(local, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr string
	}{
		{"existing path", local, local, ""},
		{"bare name", "login", stored, ""},
		{"name with extension", "login.json", stored, ""},
		{"unknown name", "nope", "", "in " + snapDir},
		{"missing path", filepath.Join(home, "x.json"), "", "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindSnapshot(tt.arg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FindSnapshot(%q) = %q, want %q", tt.arg, got, tt.want)
			}
		})
	}
}
