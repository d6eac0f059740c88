// Package state persists the agent's session token and API key.
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// ErrNotFound is returned when no state file has been written yet.
var ErrNotFound = errors.New("agent state not found")

type State struct {
	AccessToken string     `yaml:"access_token,omitempty"`
	TokenType   string     `yaml:"token_type,omitempty"`
	ExpiresAt   *time.Time `yaml:"expires_at,omitempty"`
	APIKey      string     `yaml:"api_key,omitempty"`
}

// Expired reports whether the stored session token is past its expiry.
// Tokens without an expiry never expire.
func (s State) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Store reads and writes the state file at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, fmt.Errorf("%w at %s", ErrNotFound, s.path)
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read agent state: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("failed to parse agent state %s: %w", s.path, err)
	}
	return st, nil
}

// Update loads the current state, applies fn and saves the result. A missing
// file starts from the zero State.
func (s *Store) Update(fn func(*State)) error {
	st, err := s.Load()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	fn(&st)
	return s.Save(st)
}

// Save writes st atomically, readable only by the owner.
func (s *Store) Save(st State) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode agent state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".agent-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set state file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write agent state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write agent state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace agent state: %w", err)
	}
	return nil
}
