// Package chatconf owns the per-chat settings map. The bot reads it
// through injected capabilities; nothing else touches the lock or the
// file layout.
package chatconf

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/akira02/tg.jpg/internal/fsstore"
)

const (
	settingsFilename = "chat_settings.json"
	settingsVersion  = 1
)

type Settings struct {
	LocalMode bool `json:"local_mode"`
}

type settingsFile struct {
	Version int                 `json:"version"`
	Chats   map[string]Settings `json:"chats"`
}

// Store persists per-chat settings as one JSON file under the state
// directory. Writes go through a file lock and an atomic rename;
// reads take the whole file, which the rename keeps consistent.
type Store struct {
	path     string
	lockPath string
	dir      string
}

func NewStore(stateDir string) (*Store, error) {
	stateDir = strings.TrimSpace(stateDir)
	if stateDir == "" {
		return nil, fmt.Errorf("chatconf: empty state dir")
	}
	lockPath, err := fsstore.BuildLockPath(filepath.Join(stateDir, ".fslocks"), "chat_settings")
	if err != nil {
		return nil, err
	}
	return &Store{
		path:     filepath.Join(stateDir, settingsFilename),
		lockPath: lockPath,
		dir:      stateDir,
	}, nil
}

func (s *Store) Ensure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fsstore.EnsureDir(s.dir, 0)
}

// Get returns the stored settings for a chat and whether any exist.
func (s *Store) Get(chatID int64) (Settings, bool, error) {
	var file settingsFile
	ok, err := fsstore.ReadJSON(s.path, &file)
	if err != nil {
		return Settings{}, false, err
	}
	if !ok {
		return Settings{}, false, nil
	}
	settings, found := file.Chats[chatKey(chatID)]
	return settings, found, nil
}

// SetLocalMode flips the local-first flag for one chat.
func (s *Store) SetLocalMode(ctx context.Context, chatID int64, enabled bool) error {
	return s.mutate(ctx, func(file *settingsFile) {
		settings := file.Chats[chatKey(chatID)]
		settings.LocalMode = enabled
		file.Chats[chatKey(chatID)] = settings
	})
}

func (s *Store) mutate(ctx context.Context, fn func(*settingsFile)) error {
	return fsstore.WithLock(ctx, s.lockPath, func() error {
		var file settingsFile
		if _, err := fsstore.ReadJSON(s.path, &file); err != nil {
			return err
		}
		if file.Version == 0 {
			file.Version = settingsVersion
		}
		if file.Chats == nil {
			file.Chats = map[string]Settings{}
		}
		fn(&file)
		return fsstore.WriteJSONAtomic(s.path, file, fsstore.FileOptions{})
	})
}

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
