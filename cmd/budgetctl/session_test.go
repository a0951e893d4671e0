package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/budget-tracker/pkg/client"
)

func TestTokenStore(t *testing.T) {
	s := &tokenStore{path: filepath.Join(t.TempDir(), "budgetctl", sessionFile)}

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, client.Tokens{}, got)

	want := client.Tokens{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, s.Save(want))

	info, err := os.Stat(s.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.Save(client.Tokens{}))
	_, err = os.Stat(s.path)
	assert.True(t, os.IsNotExist(err))
}
