package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temazzz/autotrader/internal/services/advisor"
)

func TestApplyYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
query: "buy something promising"
agent_path: "acme.near/trader/1.0.0"
interval_minutes: 10
simulate: true
journal_dir: "/tmp/cycles"
demo_trading: false
`), 0o644))

	cfg := Config{
		AgentPath: advisor.DefaultAgentPath,
		Interval:  5 * time.Minute,
		Demo:      true,
	}
	require.NoError(t, applyYaml(&cfg, path))

	assert.Equal(t, "buy something promising", cfg.Query)
	assert.Equal(t, "acme.near/trader/1.0.0", cfg.AgentPath)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, "/tmp/cycles", cfg.JournalDir)
	assert.False(t, cfg.Demo)
}

func TestApplyYaml_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval_minutes: 2\n"), 0o644))

	cfg := Config{
		Query:     "cli query",
		AgentPath: advisor.DefaultAgentPath,
		Interval:  5 * time.Minute,
		Demo:      true,
	}
	require.NoError(t, applyYaml(&cfg, path))

	assert.Equal(t, "cli query", cfg.Query)
	assert.Equal(t, advisor.DefaultAgentPath, cfg.AgentPath)
	assert.Equal(t, 2*time.Minute, cfg.Interval)
	assert.True(t, cfg.Demo)
}

func TestApplyYaml_BadFile(t *testing.T) {
	cfg := Config{}
	require.Error(t, applyYaml(&cfg, filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval_minutes: [nope"), 0o644))
	require.Error(t, applyYaml(&cfg, path))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OKX_API_KEY", "key")
	t.Setenv("OKX_API_SECRET", "secret")
	t.Setenv("OKX_API_PASSPHRASE", "phrase")
	t.Setenv("OKX_DEMO", "false")
	t.Setenv("DEBUG_MODE", "true")

	cfg := Config{Demo: true}
	applyEnv(&cfg)

	assert.Equal(t, "key", cfg.Credentials.APIKey)
	assert.Equal(t, "secret", cfg.Credentials.APISecret)
	assert.Equal(t, "phrase", cfg.Credentials.Passphrase)
	assert.False(t, cfg.Demo)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Credentials.Complete())
}

func TestApplyEnv_DemoDefaultsOn(t *testing.T) {
	t.Setenv("OKX_API_KEY", "")
	t.Setenv("OKX_API_SECRET", "")
	t.Setenv("OKX_API_PASSPHRASE", "")
	t.Setenv("OKX_DEMO", "")
	t.Setenv("DEBUG_MODE", "")

	cfg := Config{Demo: true}
	applyEnv(&cfg)

	assert.True(t, cfg.Demo)
	assert.False(t, cfg.Credentials.Complete())
}

func TestParseBool(t *testing.T) {
	assert.True(t, parseBool("1", false))
	assert.True(t, parseBool("TRUE", false))
	assert.True(t, parseBool(" yes ", false))
	assert.False(t, parseBool("0", true))
	assert.False(t, parseBool("off", true))
	assert.True(t, parseBool("whatever", true))
	assert.False(t, parseBool("whatever", false))
}

func TestValidate(t *testing.T) {
	valid := Config{AgentPath: advisor.DefaultAgentPath, Interval: time.Minute}
	assert.NoError(t, valid.Validate())

	noInterval := valid
	noInterval.Interval = 0
	assert.Error(t, noInterval.Validate())

	noAgent := valid
	noAgent.AgentPath = ""
	assert.Error(t, noAgent.Validate())
}
