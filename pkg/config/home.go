package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const envHome = "JAVAGUI_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the javagui-runner home directory: $JAVAGUI_HOME, else the
// parent of the binary's bin/ directory, else the working directory.
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetLogsDir returns <home>/logs.
func GetLogsDir() string {
	return filepath.Join(GetHome(), "logs")
}

// GetSnapshotsDir returns <home>/snapshots, where recorded trees are kept.
func GetSnapshotsDir() string {
	return filepath.Join(GetHome(), "snapshots")
}

// snapshotExts are tried in order when a snapshot is named without one.
var snapshotExts = []string{"", ".json", ".yaml", ".yml"}

// FindSnapshot resolves a --snapshot argument. An existing path wins;
// otherwise a bare name is looked up in GetSnapshotsDir, so "login" finds
// <home>/snapshots/login.json.
func FindSnapshot(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	if filepath.IsAbs(name) || filepath.Base(name) != name {
		return "", fmt.Errorf("snapshot %s not found", name)
	}
	dir := GetSnapshotsDir()
	for _, ext := range snapshotExts {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("snapshot %s not found here or in %s", name, dir)
}

func resolveHome() string {
	if env := os.Getenv(envHome); env != "" {
		return env
	}

	// <home>/bin/javagui
	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		if binDir := filepath.Dir(execPath); filepath.Base(binDir) == "bin" {
			return filepath.Dir(binDir)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// ResetHome clears the cached home directory. Tests only.
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
