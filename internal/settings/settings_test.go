package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	s := New()
	assert.Equal(t, "online", s.String("mode"))
	assert.Equal(t, DefaultBaseURL, s.String("base_url"))
	assert.Equal(t, "auto", s.String("console"))
	assert.Equal(t, 5, s.Int("summary_warnings"))
	assert.Empty(t, s.Strings("ignore_globs"))
	assert.False(t, s.IsLocal())

	_, ok := s.Bool("quiet")
	assert.False(t, ok, "quiet has no default")

	src, ok := s.Source("project")
	require.True(t, ok)
	assert.Equal(t, SourceBase, src)
}

func TestUpdate_SourcePriority(t *testing.T) {
	s := New()
	require.NoError(t, s.Update(map[string]any{"project": "from-env"}, SourceEnv))
	require.NoError(t, s.Update(map[string]any{"project": "from-user"}, SourceUser))
	assert.Equal(t, "from-env", s.String("project"), "lower source must not win")

	require.NoError(t, s.Update(map[string]any{"project": "from-args"}, SourceArgs))
	assert.Equal(t, "from-args", s.String("project"))
}

func TestUpdate_PolicyPriority(t *testing.T) {
	s := New()
	require.NoError(t, s.Update(map[string]any{"summary_warnings": 10}, SourceArgs))
	assert.Equal(t, 5, s.Int("summary_warnings"), "policy setting rejects higher sources")

	require.NoError(t, s.Update(map[string]any{"summary_warnings": "3"}, SourceBase))
	assert.Equal(t, 3, s.Int("summary_warnings"))
}

func TestUpdate_OverrideAlwaysWins(t *testing.T) {
	s := New()
	require.NoError(t, s.Update(map[string]any{"entity": "pinned"}, SourceOverride))
	require.NoError(t, s.Update(map[string]any{"entity": "args"}, SourceArgs))
	assert.Equal(t, "pinned", s.String("entity"))

	require.NoError(t, s.Update(map[string]any{"entity": "again"}, SourceOverride))
	assert.Equal(t, "again", s.String("entity"))
}

func TestUpdate_UnknownKeyAppliesNothing(t *testing.T) {
	s := New()
	err := s.Update(map[string]any{"project": "ok", "nope": 1}, SourceArgs)
	require.ErrorIs(t, err, ErrUnknownKey)
	assert.Empty(t, s.String("project"))
}

func TestUpdate_InvalidValueAppliesNothing(t *testing.T) {
	s := New()
	err := s.Update(map[string]any{"project": "ok", "mode": "sometimes"}, SourceArgs)
	require.ErrorIs(t, err, ErrUsage)
	assert.Empty(t, s.String("project"))
	assert.Equal(t, "online", s.String("mode"))
}

func TestUpdate_Validation(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value any
		ok    bool
	}{
		{"mode offline", "mode", "offline", true},
		{"mode bad", "mode", "sometimes", false},
		{"console wrap", "console", "wrap", true},
		{"console bad", "console", "tty", false},
		{"problem warn", "problem", "warn", true},
		{"problem bad", "problem", "loud", false},
		{"anonymous must", "anonymous", "must", true},
		{"anonymous bad", "anonymous", "maybe", false},
		{"project plain", "project", "my-project", true},
		{"project slash", "project", "a/b", false},
		{"project colon", "project", "a:b", false},
		{"project too long", "project", strings.Repeat("p", 129), false},
		{"bool from string", "silent", "true", true},
		{"bool garbage", "silent", "loudly", false},
		{"int garbage", "heartbeat_seconds", "soon", false},
		{"base url custom", "base_url", "http://localhost:8080", true},
		{"base url lookalike", "base_url", "https://api.runtrack.dev.example.com", true},
		{"base url app host", "base_url", "https://app.runtrack.dev", false},
		{"base url insecure api", "base_url", "http://api.runtrack.dev", false},
		{"base url no scheme", "base_url", "localhost:8080/api", false},
		{"base url scheme after slashes", "base_url", "//http://host.com//", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := New().Update(map[string]any{tc.key: tc.value}, SourceArgs)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUsage)
			}
		})
	}
}

func TestUpdate_BaseURLTrimmed(t *testing.T) {
	s := New()
	require.NoError(t, s.Update(map[string]any{"base_url": "http://host.example.com//"}, SourceArgs))
	assert.Equal(t, "http://host.example.com", s.String("base_url"))
	assert.True(t, s.IsLocal())
}

func TestUpdate_NilClears(t *testing.T) {
	s := New()
	require.NoError(t, s.Update(map[string]any{"project": "p"}, SourceEnv))
	require.NoError(t, s.Update(map[string]any{"project": nil}, SourceArgs))
	v, err := s.Get("project")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestFreeze(t *testing.T) {
	s := New()
	s.Freeze()
	assert.True(t, s.Frozen())
	assert.ErrorIs(t, s.Update(map[string]any{"project": "p"}, SourceArgs), ErrFrozen)

	c := s.Copy()
	assert.False(t, c.Frozen())
	require.NoError(t, c.Update(map[string]any{"project": "p"}, SourceArgs))
	assert.Empty(t, s.String("project"), "copy must not share state")

	s.Unfreeze()
	assert.NoError(t, s.Update(map[string]any{"project": "q"}, SourceArgs))
}

func TestCopy_DeepCopiesLists(t *testing.T) {
	s := New()
	require.NoError(t, s.Update(map[string]any{"run_tags": []string{"a", "b"}}, SourceArgs))
	c := s.Copy()
	require.NoError(t, c.Update(map[string]any{"run_tags": "c"}, SourceArgs))
	assert.Equal(t, []string{"a", "b"}, s.Strings("run_tags"))
	assert.Equal(t, []string{"c"}, c.Strings("run_tags"))
}

func TestHooks_DerivedPaths(t *testing.T) {
	s := New()
	require.NoError(t, s.Update(map[string]any{
		"root_dir": "/work",
		"run_id":   "abc123",
		"timespec": "20210504_123000",
		"mode":     "offline",
	}, SourceArgs))

	syncDir := filepath.Join("/work", "tracker", "offline-run-20210504_123000-abc123")
	assert.Equal(t, syncDir, s.String("sync_dir_spec"))
	assert.Equal(t, filepath.Join(syncDir, "files"), s.String("files_dir_spec"))
	assert.Equal(t, filepath.Join(syncDir, "run-abc123.tracker"), s.String("sync_file_spec"))
	assert.Equal(t, filepath.Join(syncDir, "logs", "debug-internal.log"), s.String("log_internal_spec"))
	assert.Equal(t, filepath.Join("/work", "tracker", "settings"), s.String("settings_workspace_spec"))
	assert.True(t, s.Offline())
}

func TestApplyEnviron(t *testing.T) {
	s := New()
	err := s.ApplyEnviron(map[string]string{
		"TRACKER_PROJECT":      "env-project",
		"TRACKER_IGNORE_GLOBS": "*.ckpt, *.tmp,",
		"TRACKER_SILENT":       "1",
		"TRACKER_DISABLE_CODE": "true",
		"TRACKER_TAGS":         "baseline",
		"UNRELATED":            "x",
	})
	require.NoError(t, err)

	assert.Equal(t, "env-project", s.String("project"))
	assert.Equal(t, []string{"*.ckpt", "*.tmp"}, s.Strings("ignore_globs"))
	assert.Equal(t, []string{"baseline"}, s.Strings("run_tags"))
	silent, ok := s.Bool("silent")
	assert.True(t, ok && silent)
	saveCode, ok := s.Bool("save_code")
	assert.True(t, ok)
	assert.False(t, saveCode, "disable_code turns save_code off")

	src, _ := s.Source("project")
	assert.Equal(t, SourceEnv, src)
}

func TestApplyEnviron_Invalid(t *testing.T) {
	err := New().ApplyEnviron(map[string]string{"TRACKER_MODE": "sometimes"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings")
	content := "[default]\nproject = file-project\nentity = team\nunknown_key = 1\n\n[other]\nproject = ignored\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s := New()
	require.NoError(t, s.LoadFile(path, SourceWorkspace))
	assert.Equal(t, "file-project", s.String("project"))
	assert.Equal(t, "team", s.String("entity"))

	require.NoError(t, s.ApplyEnviron(map[string]string{"TRACKER_PROJECT": "env"}))
	assert.Equal(t, "env", s.String("project"), "environment outranks workspace file")
}

func TestLoadFile_Missing(t *testing.T) {
	assert.NoError(t, New().LoadFile(filepath.Join(t.TempDir(), "absent"), SourceSystem))
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings")
	require.NoError(t, WriteFile(path, map[string]string{"project": "p1"}))
	require.NoError(t, WriteFile(path, map[string]string{"entity": "e1"}))

	s := New()
	require.NoError(t, s.LoadFile(path, SourceSystem))
	assert.Equal(t, "p1", s.String("project"))
	assert.Equal(t, "e1", s.String("entity"))
}

func TestStaticAndRedact(t *testing.T) {
	s := New()
	require.NoError(t, s.Update(map[string]any{"api_key": "secret", "project": "p"}, SourceArgs))
	static := s.Static()
	assert.Equal(t, "secret", static["api_key"])
	assert.Len(t, static, len(s.Keys()))

	red := Redact(static, nil, "")
	assert.Equal(t, DefaultRedaction, red["api_key"])
	assert.Equal(t, "p", red["project"])
	assert.Equal(t, "secret", static["api_key"], "Redact must not modify its input")

	custom := Redact(static, []string{"project"}, "<hidden>")
	assert.Equal(t, "<hidden>", custom["project"])
	assert.Equal(t, "secret", custom["api_key"])
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "override", SourceOverride.String())
	assert.Equal(t, "args", SourceArgs.String())
	assert.Equal(t, "source(99)", Source(99).String())
}
