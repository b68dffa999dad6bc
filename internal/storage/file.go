package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 10 * time.Millisecond

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// File keeps each collection as a JSON document in a directory, the on-disk
// counterpart of browser local storage. Every process pointed at the same
// directory sees the same collections. Writes and read-modify-write cycles
// hold an exclusive lock on the directory's lock file.
type File struct {
	dir    string
	prefix string

	mu   sync.Mutex
	lock *flock.Flock
}

// NewFile creates dir if needed and returns a store whose documents are
// named prefix+key.
func NewFile(dir, prefix string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &File{
		dir:    dir,
		prefix: prefix,
		lock:   flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

// Dir returns the data directory.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, keyReplacer.Replace(f.prefix+key)+".json")
}

// Get reads a document. Documents are replaced by rename, so a reader never
// sees a partial write.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (f *File) Put(ctx context.Context, key string, value []byte) error {
	return f.locked(ctx, func() error {
		return f.write(key, value)
	})
}

// Update holds the lock across the read, fn and the write.
func (f *File) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return f.locked(ctx, func() error {
		current, err := f.Get(ctx, key)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return f.write(key, next)
	})
}

func (f *File) locked(ctx context.Context, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ok, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", f.dir, err)
	}
	if !ok {
		return fmt.Errorf("lock %s: %w", f.dir, ctx.Err())
	}
	defer f.lock.Unlock()
	return fn()
}

func (f *File) write(key string, value []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Close releases the lock file handle.
func (f *File) Close() error {
	return f.lock.Close()
}
