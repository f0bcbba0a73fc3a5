package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ripple-social/client/internal/api"
)

const (
	cacheVersion  = 1
	cacheFileName = "notifications.json"
	appDirName    = "ripple"
)

// Cache persists the notification list and unread count so the feed can
// render immediately on the next start, before the first fetch resolves.
// Pagination state is deliberately not cached; it is refetched.
type Cache struct {
	dir string
}

type cacheFile struct {
	Version     int                `json:"version"`
	Items       []api.Notification `json:"items"`
	UnreadCount int                `json:"unreadCount"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// NewCache creates a cache in the given directory. Pass an empty string
// to use the default XDG state path.
func NewCache(dir string) *Cache {
	if dir == "" {
		dir = defaultCacheDir()
	}
	return &Cache{dir: dir}
}

// Path returns the full path to the cache file.
func (c *Cache) Path() string {
	return filepath.Join(c.dir, cacheFileName)
}

// Load reads the cached feed. A missing file yields an empty feed, not
// an error.
func (c *Cache) Load() ([]api.Notification, int, error) {
	data, err := os.ReadFile(c.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("reading notification cache: %w", err)
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, 0, fmt.Errorf("parsing notification cache: %w", err)
	}
	return f.Items, f.UnreadCount, nil
}

// Save writes the feed using the atomic temp-file-then-rename pattern.
func (c *Cache) Save(items []api.Notification, unreadCount int) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	f := cacheFile{
		Version:     cacheVersion,
		Items:       items,
		UnreadCount: unreadCount,
		UpdatedAt:   time.Now().UTC(),
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling notification cache: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(c.dir, ".notifications-*.tmp")
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
	if err := os.Rename(tmpPath, c.Path()); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}
	committed = true
	return nil
}

func defaultCacheDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
