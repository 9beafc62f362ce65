package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	ResetHome()
	t.Setenv("MAESTRO_IOS_CORE_HOME", "/custom/path")

	if got := GetHome(); got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_FallbackNotEmpty(t *testing.T) {
	ResetHome()
	t.Setenv("MAESTRO_IOS_CORE_HOME", "")

	if got := GetHome(); got == "" {
		t.Error("GetHome() returned empty string")
	}
}

func TestGetHome_Cached(t *testing.T) {
	ResetHome()
	t.Setenv("MAESTRO_IOS_CORE_HOME", "/first")

	first := GetHome()
	t.Setenv("MAESTRO_IOS_CORE_HOME", "/second")

	if got := GetHome(); got != first {
		t.Errorf("GetHome() = %q after env change, want cached %q", got, first)
	}
	ResetHome()
}

func TestGetLogPath(t *testing.T) {
	ResetHome()
	t.Setenv("MAESTRO_IOS_CORE_HOME", "/home/ci")
	defer ResetHome()

	got := GetLogPath()
	if got != filepath.Join("/home/ci", "logs", "maestro-ios-core.log") {
		t.Errorf("GetLogPath() = %q", got)
	}
}

func TestEnsureLogDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "core.log")
	if err := EnsureLogDir(path); err != nil {
		t.Fatalf("EnsureLogDir() error: %v", err)
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		t.Errorf("expected %s to be a directory", filepath.Dir(path))
	}
}
