package database

import (
	"fmt"
	"sync"
)

// MaxAssignmentHistory caps the in-memory assignment log
const MaxAssignmentHistory = 500

var (
	settingsOpener func(path string) (SettingsStore, error)
	providerMu     sync.RWMutex
)

// RegisterSettingsBackend registers the file-backed settings store constructor.
// This is called by the sqlite package to avoid import cycles.
func RegisterSettingsBackend(open func(path string) (SettingsStore, error)) {
	providerMu.Lock()
	defer providerMu.Unlock()
	settingsOpener = open
}

// OpenSettings opens the settings store at path. An empty path returns an
// in-memory store.
func OpenSettings(path string) (SettingsStore, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	providerMu.RLock()
	open := settingsOpener
	providerMu.RUnlock()
	if open == nil {
		return nil, fmt.Errorf("settings backend not registered: cannot open %s", path)
	}
	store, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	return store, nil
}
