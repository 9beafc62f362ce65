package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "MAESTRO_IOS_CORE_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the maestro-ios-core home directory.
//
// Resolution order:
//  1. $MAESTRO_IOS_CORE_HOME environment variable
//  2. Parent of the binary's directory (if binary is in <home>/bin/)
//  3. Current working directory
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetLogPath returns <home>/logs/maestro-ios-core.log.
func GetLogPath() string {
	return filepath.Join(GetHome(), "logs", "maestro-ios-core.log")
}

// EnsureLogDir creates the directory holding path.
func EnsureLogDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func resolveHome() string {
	if env := os.Getenv(envHome); env != "" {
		return env
	}

	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		binDir := filepath.Dir(execPath)
		if filepath.Base(binDir) == "bin" {
			return filepath.Dir(binDir)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}

// ResetHome resets the cached home directory (for testing).
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
