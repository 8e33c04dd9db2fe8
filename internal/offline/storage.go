package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/HendryAvila/specwright/internal/model"
)

// Storage persists the buffered messages of each session.
// Abstracted so the queue can run on disk or in memory.
type Storage interface {
	Load(sessionID string) ([]model.Message, error)
	Save(sessionID string, msgs []model.Message) error
	Remove(sessionID string) error
	// SetAside moves an unreadable queue out of the way so a fresh one can
	// be started without destroying it.
	SetAside(sessionID string) error
}

// ErrInvalidSessionID is returned for ids that cannot name a file.
var ErrInvalidSessionID = errors.New("offline: invalid session id")

// FileStorage keeps one JSON file per session under a directory.
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileStorage creates a filesystem-backed storage rooted at dir.
// The directory is created on first write.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// QueuePath returns the file holding the queue of sessionID.
func (fs *FileStorage) QueuePath(sessionID string) (string, error) {
	if sessionID == "" || sessionID != filepath.Base(sessionID) || strings.HasPrefix(sessionID, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	return filepath.Join(fs.dir, sessionID+".json"), nil
}

// Load reads the queue of sessionID. A missing file is an empty queue.
func (fs *FileStorage) Load(sessionID string) ([]model.Message, error) {
	path, err := fs.QueuePath(sessionID)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading offline queue: %w", err)
	}
	var msgs []model.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parsing offline queue for %q: %w", sessionID, err)
	}
	return msgs, nil
}

// Save replaces the queue of sessionID. The file is written next to its
// final path and renamed into place.
func (fs *FileStorage) Save(sessionID string, msgs []model.Message) error {
	path, err := fs.QueuePath(sessionID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling offline queue: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.MkdirAll(fs.dir, 0o700); err != nil {
		return fmt.Errorf("creating offline directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing offline queue: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing offline queue: %w", err)
	}
	return nil
}

// Remove deletes the queue of sessionID. Removing a missing queue is not an
// error.
func (fs *FileStorage) Remove(sessionID string) error {
	path, err := fs.QueuePath(sessionID)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing offline queue: %w", err)
	}
	return nil
}

// SetAside renames the queue file of sessionID to a timestamped
// ".corrupt" name next to it.
func (fs *FileStorage) SetAside(sessionID string) error {
	path, err := fs.QueuePath(sessionID)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	aside := fmt.Sprintf("%s.corrupt-%d", path, timeNow().UnixNano())
	if err := os.Rename(path, aside); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("setting aside offline queue: %w", err)
	}
	return nil
}

// MemoryStorage keeps queues in process memory.
type MemoryStorage struct {
	mu     sync.Mutex
	queues map[string][]model.Message
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{queues: make(map[string][]model.Message)}
}

func (m *MemoryStorage) Load(sessionID string) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Message(nil), m.queues[sessionID]...), nil
}

func (m *MemoryStorage) Save(sessionID string, msgs []model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[sessionID] = append([]model.Message(nil), msgs...)
	return nil
}

func (m *MemoryStorage) Remove(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queues, sessionID)
	return nil
}

// SetAside is a no-op: memory queues are never unreadable.
func (m *MemoryStorage) SetAside(string) error { return nil }
