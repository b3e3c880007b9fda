package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/ZaguanLabs/gotlex"
)

// FileStore is a gotlex.Store persisted as a single JSON file.
//
// Every call re-reads the file, and mutations rewrite it, while holding a
// lock on a sibling ".lock" file: shared for reads, exclusive for
// read-modify-write cycles. Writes go to a temporary file that is renamed
// over the original, so a reader never observes a partial file and
// concurrent processes resolve as last writer wins.
type FileStore struct {
	path       string
	namespaces gotlex.NamespaceSet
	lock       *flock.Flock
	opts       options

	mu     sync.Mutex // serializes goroutines sharing this handle
	closed bool
}

// OpenFileStore opens (creating the directory if needed) a file-backed store
// with the given namespaces. Every namespace must have a positive TTL.
func OpenFileStore(path string, namespaces []gotlex.Namespace, opts ...Option) (*FileStore, error) {
	set, err := gotlex.NewNamespaceSet(namespaces...)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return nil, &gotlex.StorageError{Op: "open", Message: "empty cache file path"}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &gotlex.StorageError{Op: "open", Path: path, Message: "creating cache directory", Cause: err}
	}

	return &FileStore{
		path:       path,
		namespaces: set,
		lock:       flock.New(path + ".lock"),
		opts:       buildOptions(opts),
	}, nil
}

// DefaultFilePath returns the per-user cache file location,
// e.g. ~/.cache/gotlex/cache.json on Linux.
func DefaultFilePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gotlex", "cache.json"), nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the fresh value stored under (namespace, key).
func (s *FileStore) Get(ctx context.Context, namespace, key string) (json.RawMessage, bool, error) {
	ttl, err := s.namespaces.TTL(namespace)
	if err != nil {
		return nil, false, err
	}
	key = gotlex.NormalizeKey(key)

	var value json.RawMessage
	var found bool
	err = s.withLock(ctx, "get", false, func() error {
		data, err := s.load("get")
		if err != nil {
			return err
		}

		e, ok := data.get(namespace, key)
		if !ok || gotlex.IsExpired(e.createdAt(), s.opts.now(), ttl) {
			return nil
		}
		value = append(json.RawMessage(nil), e.Value...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Put stores value under (namespace, key) with the current time and persists it.
func (s *FileStore) Put(ctx context.Context, namespace, key string, value json.RawMessage) error {
	if _, err := s.namespaces.TTL(namespace); err != nil {
		return err
	}
	key = gotlex.NormalizeKey(key)
	if err := gotlex.ValidateValue(namespace, key, value); err != nil {
		return err
	}

	return s.withLock(ctx, "put", true, func() error {
		data, err := s.load("put")
		if err != nil {
			return err
		}
		data.put(namespace, key, newStoredEntry(value, s.opts.now()))
		return s.save("put", data)
	})
}

// Delete removes (namespace, key) and reports whether it existed.
func (s *FileStore) Delete(ctx context.Context, namespace, key string) (bool, error) {
	if _, err := s.namespaces.TTL(namespace); err != nil {
		return false, err
	}
	key = gotlex.NormalizeKey(key)

	var existed bool
	err := s.withLock(ctx, "delete", true, func() error {
		data, err := s.load("delete")
		if err != nil {
			return err
		}
		if existed = data.delete(namespace, key); !existed {
			return nil
		}
		return s.save("delete", data)
	})
	return existed, err
}

// CleanupExpired removes expired entries from every configured namespace.
func (s *FileStore) CleanupExpired(ctx context.Context) (int, error) {
	removed := 0
	err := s.withLock(ctx, "cleanup", true, func() error {
		data, err := s.load("cleanup")
		if err != nil {
			return err
		}
		if removed = data.removeExpired(s.namespaces, s.opts.now()); removed == 0 {
			return nil
		}
		return s.save("cleanup", data)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ClearAll removes every entry of every namespace and persists an empty store.
func (s *FileStore) ClearAll(ctx context.Context) (int, error) {
	cleared := 0
	err := s.withLock(ctx, "clear", true, func() error {
		data, err := s.load("clear")
		if err != nil {
			return err
		}
		cleared = data.len()
		return s.save("clear", namespaceMap{})
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

// Stats reports per-namespace counts and the size of the backing file.
func (s *FileStore) Stats(ctx context.Context) (*gotlex.Report, error) {
	var report *gotlex.Report
	err := s.withLock(ctx, "stats", false, func() error {
		data, err := s.load("stats")
		if err != nil {
			return err
		}
		report = data.report(s.namespaces, s.opts.now())

		info, err := os.Stat(s.path)
		switch {
		case err == nil:
			report.SizeBytes = info.Size()
		case !errors.Is(err, os.ErrNotExist):
			return &gotlex.StorageError{Op: "stats", Path: s.path, Message: "reading file size", Cause: err}
		}
		report.SizeKnown = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Dump returns every stored entry, fresh or expired.
func (s *FileStore) Dump(ctx context.Context) ([]gotlex.Entry, error) {
	var entries []gotlex.Entry
	err := s.withLock(ctx, "dump", false, func() error {
		data, err := s.load("dump")
		if err != nil {
			return err
		}
		entries = data.dump()
		return nil
	})
	return entries, err
}

// Restore writes entries back with their original timestamps.
func (s *FileStore) Restore(ctx context.Context, entries []gotlex.Entry) (int, error) {
	written := 0
	err := s.withLock(ctx, "restore", true, func() error {
		data, err := s.load("restore")
		if err != nil {
			return err
		}
		if written = data.restore(s.namespaces, entries); written == 0 {
			return nil
		}
		return s.save("restore", data)
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Close releases the lock file handle. Further calls fail with a StorageError.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.lock.Close()
}

// withLock runs fn while holding the in-process mutex and the file lock.
func (s *FileStore) withLock(ctx context.Context, op string, exclusive bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &gotlex.StorageError{Op: op, Path: s.path, Message: "store is closed"}
	}

	var locked bool
	var err error
	if exclusive {
		locked, err = s.lock.TryLockContext(ctx, s.opts.lockRetry)
	} else {
		locked, err = s.lock.TryRLockContext(ctx, s.opts.lockRetry)
	}
	if err != nil {
		return &gotlex.StorageError{Op: op, Path: s.lock.Path(), Message: "acquiring file lock", Cause: err}
	}
	if !locked {
		return &gotlex.StorageError{Op: op, Path: s.lock.Path(), Message: "file lock not acquired"}
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.opts.logger.Warn("releasing cache file lock failed", zap.String("path", s.lock.Path()), zap.Error(err))
		}
	}()

	return fn()
}

// load reads the backing file. A missing or empty file is an empty store;
// an unparseable one is treated as empty and reported with a warning.
func (s *FileStore) load(op string) (namespaceMap, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return namespaceMap{}, nil
		}
		return nil, &gotlex.StorageError{Op: op, Path: s.path, Message: "reading cache file", Cause: err}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return namespaceMap{}, nil
	}

	var data namespaceMap
	if err := json.Unmarshal(raw, &data); err != nil {
		s.opts.logger.Warn("cache file is corrupt, treating it as empty",
			zap.String("path", s.path),
			zap.String("op", op),
			zap.Error(err),
		)
		return namespaceMap{}, nil
	}
	if data == nil {
		data = namespaceMap{}
	}
	s.dropInvalid(op, data)
	return data, nil
}

// dropInvalid removes entries without a payload so every read path treats
// them as absent. The next write persists the removal.
func (s *FileStore) dropInvalid(op string, data namespaceMap) {
	for name, entries := range data {
		for key, e := range entries {
			if e.valid() {
				continue
			}
			s.opts.logger.Warn("corrupt cache entry, treating it as absent",
				zap.String("path", s.path),
				zap.String("op", op),
				zap.String("namespace", name),
				zap.String("key", key),
			)
			data.delete(name, key)
		}
	}
}

// save atomically replaces the backing file with data.
func (s *FileStore) save(op string, data namespaceMap) error {
	raw, err := marshalJSON(data, false)
	if err != nil {
		return &gotlex.StorageError{Op: op, Path: s.path, Message: "encoding cache file", Cause: err}
	}

	if err := renameio.WriteFile(s.path, raw, 0o600); err != nil {
		return &gotlex.StorageError{Op: op, Path: s.path, Message: "writing cache file", Cause: err}
	}
	return nil
}

// Verify FileStore implements the store interfaces
var (
	_ gotlex.Store    = (*FileStore)(nil)
	_ gotlex.Dumper   = (*FileStore)(nil)
	_ gotlex.Restorer = (*FileStore)(nil)
)
