package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/harun/yordamchi/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRegistry(t *testing.T) {
	t.Helper()
	dataDir := t.TempDir()
	path := filepath.Join(dataDir, "users.json")
	useConfig(t, map[string]interface{}{
		"data_dir": dataDir,
		"registry": map[string]interface{}{"driver": "json", "path": path},
	})

	store, err := registry.OpenFile(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Touch(ctx, registry.Profile{UserID: 42, Username: "aziz", FirstName: "Aziz"}))
	require.NoError(t, store.SetLanguage(ctx, 42, "uz"))
	require.NoError(t, store.Touch(ctx, registry.Profile{UserID: 43}))
	require.NoError(t, store.Close())
}

func runUsers(t *testing.T, args ...string) string {
	t.Helper()
	cmd := GetRootCmd()
	cmd.SetArgs(append([]string{"users"}, args...))
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	require.NoError(t, cmd.Execute())
	return output.String()
}

func TestUsersCount(t *testing.T) {
	seedRegistry(t)
	assert.Contains(t, runUsers(t, "count"), "Registered users: 2")
}

func TestUsersShow(t *testing.T) {
	seedRegistry(t)

	t.Run("known user", func(t *testing.T) {
		out := runUsers(t, "show", "42")
		assert.Contains(t, out, "User: 42")
		assert.Contains(t, out, "Username: @aziz")
		assert.Contains(t, out, "Language: uz")
		assert.Contains(t, out, "Interactions: 1")
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.Contains(t, runUsers(t, "show", "7"), "User 7 is not registered.")
	})
}

func TestUsersShowRejectsBadID(t *testing.T) {
	err := runUsersShow(usersShowCmd, []string{"abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user id")
}
