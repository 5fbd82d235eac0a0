package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var copilotVars = []string{
	"COPILOT_HOME", "COPILOT_DOCUMENT", "COPILOT_CREATOR_ID", "COPILOT_MODEL",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "COPILOT_LOG_LEVEL", "COPILOT_ID_FORMAT",
	"COPILOT_SNAPSHOT_KEEP", "COPILOT_GENERATOR_TIMEOUT",
}

// isolate points the home at a temp dir, runs from an empty cwd, and unsets
// every variable the package reads.
func isolate(t *testing.T) string {
	t.Helper()
	ResetEnv()
	t.Cleanup(ResetEnv)

	for _, key := range copilotVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	home := t.TempDir()
	t.Setenv("COPILOT_HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestEnvDefaults(t *testing.T) {
	home := isolate(t)

	env := Env()
	require.NoError(t, LoadError())
	assert.Equal(t, home, env.Home)
	assert.Equal(t, "", env.Document)
	assert.Equal(t, 0, env.CreatorID)
	assert.Equal(t, DefaultModel, env.Model)
	assert.Equal(t, DefaultLogLevel, env.LogLevel)
	assert.Equal(t, DefaultIDFormat, env.IDFormat)
	assert.Equal(t, DefaultSnapshotKeep, env.SnapshotKeep)
	assert.Equal(t, DefaultGeneratorTimeout, env.GeneratorTimeout)
}

func TestEnvFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("COPILOT_DOCUMENT", "/tmp/agent.json")
	t.Setenv("COPILOT_CREATOR_ID", "42")
	t.Setenv("COPILOT_MODEL", "gpt-4o")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("COPILOT_ID_FORMAT", "objectid")
	t.Setenv("COPILOT_SNAPSHOT_KEEP", "5")
	t.Setenv("COPILOT_GENERATOR_TIMEOUT", "15s")

	env := Env()
	require.NoError(t, LoadError())
	assert.Equal(t, "/tmp/agent.json", env.Document)
	assert.Equal(t, 42, env.CreatorID)
	assert.Equal(t, "gpt-4o", env.Model)
	assert.Equal(t, "sk-test", env.OpenAIKey)
	assert.Equal(t, "http://localhost:11434/v1", env.OpenAIBaseURL)
	assert.Equal(t, "objectid", env.IDFormat)
	assert.Equal(t, 5, env.SnapshotKeep)
	assert.Equal(t, 15*time.Second, env.GeneratorTimeout)
}

func TestEnvConfigFileUnderEnvironment(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`
document: /data/support.json
creator_id: 7
model: from-file
log_level: debug
snapshot_keep: 3
generator_timeout: 2m
`), 0644))
	t.Setenv("COPILOT_MODEL", "from-env")

	env := Env()
	require.NoError(t, LoadError())
	assert.Equal(t, "/data/support.json", env.Document)
	assert.Equal(t, 7, env.CreatorID)
	assert.Equal(t, "from-env", env.Model)
	assert.Equal(t, "debug", env.LogLevel)
	assert.Equal(t, 3, env.SnapshotKeep)
	assert.Equal(t, 2*time.Minute, env.GeneratorTimeout)
}

func TestEnvDotEnvFile(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte("COPILOT_CREATOR_ID=9\nOPENAI_API_KEY=sk-dotenv\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("COPILOT_CREATOR_ID")
		os.Unsetenv("OPENAI_API_KEY")
	})

	env := Env()
	require.NoError(t, LoadError())
	assert.Equal(t, 9, env.CreatorID)
	assert.Equal(t, "sk-dotenv", env.OpenAIKey)
}

func TestEnvReportsBadValues(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("model: [unclosed"), 0644))
	t.Setenv("COPILOT_SNAPSHOT_KEEP", "many")

	env := Env()
	assert.Error(t, LoadError())
	require.NotNil(t, env)
	assert.Equal(t, DefaultModel, env.Model)
	assert.Equal(t, DefaultSnapshotKeep, env.SnapshotKeep)
}

func TestEnvSingleton(t *testing.T) {
	isolate(t)

	env1 := Env()
	env2 := Env()
	assert.Same(t, env1, env2)
}

func TestPaths(t *testing.T) {
	home := isolate(t)

	p := GetPaths()
	assert.Equal(t, home, p.Home)
	assert.Equal(t, filepath.Join(home, "snapshots"), p.Snapshots)
	assert.Equal(t, filepath.Join(home, "audit.log"), p.AuditLog)
	assert.Equal(t, filepath.Join(home, ".env"), p.EnvFile)
	assert.Equal(t, filepath.Join(home, "config.yaml"), p.ConfigFile)
}
