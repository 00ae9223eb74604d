// Package session persists the signed-in user across runs. The file holds a
// single [sessions] table; nothing else from the running program is stored.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/roster/internal/config"
)

// ErrNoSession is returned by Load when nobody is signed in.
var ErrNoSession = errors.New("not logged in, run `roster login` first")

// Session is the persisted authentication result.
type Session struct {
	Email     string    `toml:"email"`
	Token     string    `toml:"token"`
	APIURL    string    `toml:"api_url"`
	CreatedAt time.Time `toml:"created_at"`
}

// Valid reports whether s carries a token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

type file struct {
	Sessions *Session `toml:"sessions"`
}

// Load reads the session at path. A missing file or an empty token gives
// ErrNoSession.
func Load(path string) (Session, error) {
	resolved, err := config.ExpandPath(path)
	if err != nil {
		return Session{}, fmt.Errorf("resolve session path: %w", err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return Session{}, fmt.Errorf("parse session: %w", err)
	}
	if f.Sessions == nil || !f.Sessions.Valid() {
		return Session{}, ErrNoSession
	}
	return *f.Sessions, nil
}

// Save writes s to path with owner-only permissions.
func Save(path string, s Session) error {
	if !s.Valid() {
		return fmt.Errorf("save session: token is empty")
	}
	resolved, err := config.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("resolve session path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	data, err := toml.Marshal(file{Sessions: &s})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Chmod(resolved, 0o600)
}

// Clear removes the session file. Clearing a missing session is not an error.
func Clear(path string) error {
	resolved, err := config.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("resolve session path: %w", err)
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
