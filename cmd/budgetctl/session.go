package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/budget-tracker/pkg/client"
)

const sessionFile = "session.yaml"

// tokenStore persists the session tokens between invocations.
type tokenStore struct {
	path string
}

func defaultTokenStore() (*tokenStore, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return &tokenStore{path: filepath.Join(dir, sessionFile)}, nil
}

func (s *tokenStore) Load() (client.Tokens, error) {
	var t client.Tokens
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("failed to read session: %w", err)
	}
	if err := yaml.Unmarshal(b, &t); err != nil {
		return t, fmt.Errorf("failed to parse session %s: %w", s.path, err)
	}
	return t, nil
}

// Save writes t, or removes the file when t is empty.
func (s *tokenStore) Save(t client.Tokens) error {
	if t == (client.Tokens{}) {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// newClient builds an API client whose token changes are written back to
// the session file.
func newClient() (*client.Client, error) {
	store, err := defaultTokenStore()
	if err != nil {
		return nil, err
	}
	tokens, err := store.Load()
	if err != nil {
		return nil, err
	}
	provider := client.NewTokenProvider(tokens, func(t client.Tokens) {
		if err := store.Save(t); err != nil {
			slog.Warn("failed to save session", "error", err)
		}
	})
	return client.New(viper.GetString("server"), client.WithTokenProvider(provider)), nil
}
