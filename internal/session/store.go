// Package session persists the signed-in identity and its credential.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matheus3301/msgr/internal/chat"
)

// Session is the signed-in identity and the credential attached to requests.
type Session struct {
	Identity   chat.Identity
	Credential string
}

type file struct {
	Credential string       `toml:"credential"`
	Identity   fileIdentity `toml:"identity"`
}

type fileIdentity struct {
	ID          string `toml:"id"`
	DisplayName string `toml:"display_name"`
	AvatarRef   string `toml:"avatar_ref,omitempty"`
}

// Store keeps the session in memory and in a 0600 TOML file. It is the
// credential source of every authenticated request.
type Store struct {
	path string

	mu  sync.RWMutex
	cur *Session
}

// NewStore creates a store backed by path. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted session. A file missing either half of the pair is
// treated as absent and removed.
func (s *Store) Load() (Session, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("read session: %w", err)
	}

	var f file
	if _, err := toml.Decode(string(data), &f); err != nil || f.Credential == "" || f.Identity.ID == "" {
		_ = os.Remove(s.path)
		return Session{}, false, nil
	}

	sess := Session{
		Credential: f.Credential,
		Identity: chat.Identity{
			ID:          f.Identity.ID,
			DisplayName: f.Identity.DisplayName,
			AvatarRef:   f.Identity.AvatarRef,
			Presence:    chat.Online,
		},
	}
	s.mu.Lock()
	s.cur = &sess
	s.mu.Unlock()
	return sess, true, nil
}

// Save persists identity and credential together. The file is replaced
// atomically so a reader never sees one without the other.
func (s *Store) Save(identity chat.Identity, credential string) error {
	if identity.ID == "" || credential == "" {
		return errors.New("save session: identity and credential are required")
	}

	var buf bytes.Buffer
	err := toml.NewEncoder(&buf).Encode(file{
		Credential: credential,
		Identity: fileIdentity{
			ID:          identity.ID,
			DisplayName: identity.DisplayName,
			AvatarRef:   identity.AvatarRef,
		},
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.cur = &Session{Identity: identity, Credential: credential}
	s.mu.Unlock()
	return nil
}

// Clear forgets the session in memory and on disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns the session held in memory.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return Session{}, false
	}
	return *s.cur, true
}

// Credential returns the credential to attach to requests, or "" when signed out.
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.Credential
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
