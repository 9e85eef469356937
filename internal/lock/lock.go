// Package lock keeps two msgr processes from driving the same profile, and two
// servers from sharing a database.
package lock

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrHeld matches a HeldError with errors.Is.
var ErrHeld = errors.New("lock held")

// Holder is written into the lock file by the process that owns it.
type Holder struct {
	Owner string    `toml:"owner"`
	PID   int       `toml:"pid"`
	Since time.Time `toml:"since"`
}

// HeldError reports who holds a lock. Holder is zero when the file could not
// be read back.
type HeldError struct {
	Path   string
	Holder Holder
}

func (e *HeldError) Error() string {
	if e.Holder.PID == 0 {
		return fmt.Sprintf("%s is locked by another process", e.Path)
	}
	owner := e.Holder.Owner
	if owner == "" {
		owner = "another process"
	}
	return fmt.Sprintf("%s is locked by %s (pid %d) since %s",
		e.Path, owner, e.Holder.PID, e.Holder.Since.Local().Format(time.DateTime))
}

func (e *HeldError) Is(target error) bool { return target == ErrHeld }

// Lock is an flock(2) held on a file until Release.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive, non-blocking lock on path for owner (a binary
// name), creating the file and its directory when needed.
func Acquire(path, owner string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		held := &HeldError{Path: path}
		held.Holder, _ = ReadHolder(path)
		return nil, held
	}

	if err := writeHolder(f, Holder{Owner: owner, PID: os.Getpid(), Since: time.Now().UTC().Truncate(time.Second)}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return &Lock{file: f, path: path}, nil
}

// ReadHolder returns what the current owner wrote into the lock file at path.
func ReadHolder(path string) (Holder, error) {
	var h Holder
	if _, err := toml.DecodeFile(path, &h); err != nil {
		return Holder{}, err
	}
	return h, nil
}

func writeHolder(f *os.File, h Holder) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(h); err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.WriteAt(buf.Bytes(), 0)
	return err
}

// Release drops the lock and removes the file. It is safe on a nil or
// already released lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}
