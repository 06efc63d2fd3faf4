package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/assurance/internal/testutil/testlog"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assurance.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	testlog.Start(t)
	require.NoError(t, Validate(Default()))
}

func TestTemplateLoadsToDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "nested", "assurance.toml")
	require.NoError(t, WriteTemplate(path, false))
	assert.Error(t, WriteTemplate(path, false))
	require.NoError(t, WriteTemplate(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Agent, cfg.Agent)
	assert.Equal(t, def.Transport, cfg.Transport)
	assert.Equal(t, def.Admin.Addr, cfg.Admin.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Admin.CORSOrigins)
	assert.Equal(t, def.LogCapacity, cfg.LogCapacity)
}

func TestLoadOverlaysOnlyDefinedKeys(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, `
org_id = " ORG@AdobeOrg "
pin = "2468"
state_path = "/tmp/state.toml"

[session]
chunk_size = 1024
await_start_forwarding = true
shutdown_timeout = "2s"

[session.reconnect]
delay = "250ms"
multiplier = 2.0
max_delay = "4s"

[console]
log_capacity = 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultName, cfg.Name)
	assert.Equal(t, "ORG@AdobeOrg", cfg.OrgID)
	assert.Equal(t, "2468", cfg.PIN)
	assert.Equal(t, "/tmp/state.toml", cfg.StatePath)
	assert.Equal(t, 1024, cfg.Agent.Session.ChunkSize)
	assert.True(t, cfg.Agent.Session.AwaitStartForwarding)
	assert.Equal(t, 2*time.Second, cfg.Agent.ShutdownTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Agent.Session.Reconnect.Delay)
	assert.Equal(t, 2.0, cfg.Agent.Session.Reconnect.Multiplier)
	assert.Equal(t, 4*time.Second, cfg.Agent.Session.Reconnect.MaxDelay)
	assert.Equal(t, Default().Agent.Session.Host, cfg.Agent.Session.Host)
	assert.Equal(t, 200, cfg.Agent.Session.InboundCapacity)

	agentCfg := cfg.AgentConfig()
	assert.Equal(t, "ORG@AdobeOrg", agentCfg.OrgID)
	pres := cfg.PresentationConfig()
	assert.Equal(t, "2468", pres.PIN)
	assert.Equal(t, 50, pres.LogCapacity)
}

func TestLoadRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"bad duration":     "[session]\nshutdown_timeout = \"soon\"\n",
		"zero chunk":       "[session]\nchunk_size = 0\n",
		"pin without org":  "pin = \"1234\"\n",
		"low multiplier":   "[session.reconnect]\nmultiplier = 0.5\n",
		"max below delay":  "[session.reconnect]\ndelay = \"5s\"\nmax_delay = \"1s\"\n",
		"unknown level":    "log_level = \"loud\"\n",
		"empty admin addr": "[admin]\naddr = \"\"\n",
		"not toml":         "name = ",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeFile(t, "name = \"dev\"\nflavor = \"mint\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Name)
}
