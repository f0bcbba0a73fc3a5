package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KV is the durable key-value store the vault persists tokens into.
// Implementations must treat a missing key as an absent value, not an
// error.
type KV interface {
	Read(key string) (string, bool)
	Write(key, value string) error
	Delete(key string) error
}

const (
	kvVersion  = 1
	kvFileName = "session.json"
	appDirName = "ripple"
)

// FileKV is a KV backed by a single JSON file under the XDG state
// directory. Writes go through the atomic temp-file-then-rename pattern
// so a crash mid-write never corrupts the store.
type FileKV struct {
	mu   sync.Mutex
	dir  string
	vals map[string]string
}

type kvFile struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values"`
}

// OpenFileKV loads (or initializes) the store in the given directory.
// Pass an empty string to use the default XDG state path. A missing or
// unreadable file yields an empty store rather than an error; persistence
// loss must not block the session.
func OpenFileKV(dir string) *FileKV {
	if dir == "" {
		dir = defaultStateDir()
	}
	kv := &FileKV{dir: dir, vals: make(map[string]string)}

	data, err := os.ReadFile(kv.path())
	if err != nil {
		return kv
	}
	var f kvFile
	if err := json.Unmarshal(data, &f); err != nil {
		return kv
	}
	if f.Values != nil {
		kv.vals = f.Values
	}
	return kv
}

func (kv *FileKV) path() string {
	return filepath.Join(kv.dir, kvFileName)
}

func (kv *FileKV) Read(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.vals[key]
	return v, ok
}

func (kv *FileKV) Write(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.vals[key] = value
	return kv.saveLocked()
}

func (kv *FileKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.vals[key]; !ok {
		return nil
	}
	delete(kv.vals, key)
	return kv.saveLocked()
}

func (kv *FileKV) saveLocked() error {
	if err := os.MkdirAll(kv.dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(kvFile{Version: kvVersion, Values: kv.vals}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(kv.dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, kv.path()); err != nil {
		return fmt.Errorf("renaming state file: %w", err)
	}
	committed = true
	return nil
}

// defaultStateDir resolves ~/.local/state/ripple, honoring
// XDG_STATE_HOME.
func defaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
