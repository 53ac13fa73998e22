package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtelemetry/internal/settings"
)

func TestSettings_SetAndGet(t *testing.T) {
	systemFile, _ := isolateSettings(t)

	out, err := run(t, "", "settings", "set", "project=vision", "entity=team")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 setting(s) to "+systemFile)

	out, err = run(t, "", "settings", "get", "project")
	require.NoError(t, err)
	assert.Equal(t, "vision\n", out)
}

func TestSettings_WorkspaceOutranksSystem(t *testing.T) {
	_, workspaceFile := isolateSettings(t)

	_, err := run(t, "", "settings", "set", "project=system")
	require.NoError(t, err)
	_, err = run(t, "", "settings", "set", "--workspace", "project=workspace")
	require.NoError(t, err)
	_, err = os.Stat(workspaceFile)
	require.NoError(t, err)

	out, err := run(t, "", "settings", "get", "project")
	require.NoError(t, err)
	assert.Equal(t, "workspace\n", out)
}

func TestSettings_EnvOutranksFiles(t *testing.T) {
	isolateSettings(t)
	_, err := run(t, "", "settings", "set", "--workspace", "project=workspace")
	require.NoError(t, err)

	t.Setenv("TRACKER_PROJECT", "from-env")
	out, err := run(t, "", "settings", "get", "project")
	require.NoError(t, err)
	assert.Equal(t, "from-env\n", out)
}

func TestSettings_SetRejectsInvalid(t *testing.T) {
	systemFile, _ := isolateSettings(t)

	_, err := run(t, "", "settings", "set", "project=ok", "mode=sometimes")
	assert.ErrorIs(t, err, settings.ErrUsage)
	_, statErr := os.Stat(systemFile)
	assert.True(t, os.IsNotExist(statErr), "nothing is written when any value is invalid")

	_, err = run(t, "", "settings", "set", "nope=1")
	assert.ErrorIs(t, err, settings.ErrUnknownKey)

	_, err = run(t, "", "settings", "set", "project")
	assert.Error(t, err)
}

func TestSettings_GetUnknown(t *testing.T) {
	isolateSettings(t)
	_, err := run(t, "", "settings", "get", "nope")
	assert.ErrorIs(t, err, settings.ErrUnknownKey)
}

func TestSettings_ShowRedacts(t *testing.T) {
	isolateSettings(t)
	t.Setenv("TRACKER_API_KEY", "secret-key")

	out, err := run(t, "", "settings", "show", "--sources")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key="+settings.DefaultRedaction+"\t(env)")
	assert.NotContains(t, out, "secret-key")
	assert.Contains(t, out, "mode=online\t(base)")

	out, err = run(t, "", "settings", "show", "--unsafe")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key=secret-key\n")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "x"), expandHome("~/.config/x"))
	assert.Equal(t, "/etc/x", expandHome("/etc/x"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
}
