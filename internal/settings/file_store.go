package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/tOgg1/roomlist/internal/logging"
)

const (
	CurrentVersion = 1

	defaultDebounce = 1 * time.Second
)

// fileState is the on-disk layout of a FileStore.
type fileState struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values,omitempty"`
}

// FileStore persists settings as a JSON file. Writes made through SaveSoon
// are debounced; Set writes through before returning. The file is guarded by
// an advisory lock so several processes can share it.
type FileStore struct {
	path     string
	lockPath string
	logger   zerolog.Logger

	mu        sync.Mutex
	state     fileState
	dirty     bool
	writing   int
	closed    bool
	timer     *time.Timer
	debounce  time.Duration
	lastWrite time.Time
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithDebounce sets the delay used by SaveSoon.
func WithDebounce(d time.Duration) FileOption {
	return func(s *FileStore) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// NewFileStore returns a store backed by path. Call Load to read existing values.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	path = strings.TrimSpace(path)
	s := &FileStore{
		path:     path,
		lockPath: path + ".lock",
		logger:   logging.Component("settings-file"),
		state: fileState{
			Version: CurrentVersion,
			Values:  make(map[string]string),
		},
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenFileStore creates a store and loads the file.
func OpenFileStore(path string, opts ...FileOption) (*FileStore, error) {
	s := NewFileStore(path, opts...)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

// Load replaces the in-memory values with the file contents.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}

	loaded, err := s.loadLocked()
	if err != nil {
		return err
	}
	s.state = loaded
	s.dirty = false
	return nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state.Values[key]
	return v, ok
}

func (s *FileStore) Bool(name string) (bool, bool) {
	return parseBool(s.Get(name))
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state.Values[key] = value
	s.dirty = true
	s.mu.Unlock()
	return s.SaveNow()
}

func (s *FileStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if _, ok := s.state.Values[key]; ok {
		return false, nil
	}
	s.state.Values[key] = value
	s.markDirtyLocked()
	return true, nil
}

// Values returns a copy of every stored value.
func (s *FileStore) Values() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneValues(s.state.Values)
}

// SaveSoon schedules a debounced write.
func (s *FileStore) SaveSoon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markDirtyLocked()
}

// Close flushes pending writes. Later writes fail with ErrClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.closed = true
	needsSave := s.dirty
	s.mu.Unlock()
	if !needsSave {
		return nil
	}
	return s.SaveNow()
}

// SaveNow writes the current values to disk.
func (s *FileStore) SaveNow() error {
	s.mu.Lock()
	if s.path == "" {
		s.dirty = false
		s.mu.Unlock()
		return nil
	}
	state := fileState{Version: CurrentVersion, Values: cloneValues(s.state.Values)}
	s.dirty = false
	s.writing++
	s.mu.Unlock()

	err := withFileLock(s.lockPath, func() error {
		return writeAtomicJSON(s.path, state)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writing--
	if err != nil {
		s.dirty = true
		return err
	}
	s.lastWrite = time.Now().UTC()
	return nil
}

func (s *FileStore) markDirtyLocked() {
	s.dirty = true
	if s.path == "" || s.closed {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, func() {
			if err := s.SaveNow(); err != nil {
				s.logger.Warn().Err(err).Str("path", s.path).Msg("failed to save settings")
			}
		})
		return
	}
	_ = s.timer.Reset(s.debounce)
}

// Watch reloads the file whenever another writer changes it and calls
// onChange after each reload that altered a value. It blocks until ctx is
// done. Local writes that are still pending are kept.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	// Writes replace the file via rename, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			changed, err := s.reload()
			if err != nil {
				s.logger.Warn().Err(err).Str("path", s.path).Msg("failed to reload settings")
				continue
			}
			if changed && onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Msg("settings watcher error")
		}
	}
}

func (s *FileStore) reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty || s.writing > 0 {
		return false, nil
	}
	loaded, err := s.loadLocked()
	if err != nil {
		return false, err
	}
	if equalValues(s.state.Values, loaded.Values) {
		return false, nil
	}
	s.state = loaded
	return true, nil
}

func (s *FileStore) loadLocked() (fileState, error) {
	var out fileState
	if err := withFileLock(s.lockPath, func() error {
		payload, err := os.ReadFile(s.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				out = fileState{Version: CurrentVersion}
				return nil
			}
			return err
		}
		if len(payload) == 0 {
			out = fileState{Version: CurrentVersion}
			return nil
		}

		if err := json.Unmarshal(payload, &out); err == nil && out.Version > 0 {
			return nil
		}

		// Unversioned files are a flat key/value object.
		var flat map[string]any
		if err := json.Unmarshal(payload, &flat); err != nil {
			return fmt.Errorf("parse %s: %w", s.path, err)
		}
		out = fileState{Version: CurrentVersion, Values: make(map[string]string, len(flat))}
		for k, v := range flat {
			out.Values[k] = fmt.Sprint(v)
		}
		return nil
	}); err != nil {
		return fileState{}, err
	}

	if out.Version <= 0 {
		out.Version = CurrentVersion
	}
	if out.Values == nil {
		out.Values = make(map[string]string)
	}
	return out, nil
}

func withFileLock(lockPath string, fn func() error) error {
	if strings.TrimSpace(lockPath) == "" {
		return fn()
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()
	return fn()
}

func writeAtomicJSON(path string, state fileState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cloneValues(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func equalValues(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if other, ok := b[k]; !ok || other != v {
			return false
		}
	}
	return true
}
