package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		cmd := GetRootCmd()
		stopCmd := cmd.Commands()

		found := false
		for _, c := range stopCmd {
			if c.Name() == "stop" {
				found = true
				break
			}
		}
		assert.True(t, found, "stop command should exist")
	})

	t.Run("help text", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"stop", "--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Stop the Yordamchi daemon service")
		assert.Contains(t, helpText, "timeout")
	})
}

func TestStopDaemon(t *testing.T) {
	t.Run("no pid file", func(t *testing.T) {
		_, err := stopDaemon(filepath.Join(t.TempDir(), "missing.pid"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not running")
	})

	t.Run("stale pid file removed", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "stale.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("999999999"), 0644))

		_, err := stopDaemon(pidFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stale")

		_, statErr := os.Stat(pidFile)
		assert.True(t, os.IsNotExist(statErr))
	})
}
