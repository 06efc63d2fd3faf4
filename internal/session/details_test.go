package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/assurance/internal/testutil/testlog"
	"github.com/danmuck/assurance/internal/transport"
)

func TestParseDeepLinkReadsSessionAndEnvironment(t *testing.T) {
	testlog.Start(t)
	id := uuid.NewString()
	d, err := ParseDeepLink("myapp://assurance?adb_validation_sessionid=" + id + "&env=stage")
	require.NoError(t, err)
	assert.Equal(t, id, d.SessionID)
	assert.Equal(t, EnvStage, d.Environment)
	assert.False(t, d.Authenticated())

	d, err = ParseDeepLink("myapp://assurance?adb_validation_sessionid=" + id)
	require.NoError(t, err)
	assert.Equal(t, EnvProd, d.Environment)
}

func TestParseDeepLinkRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	_, err := ParseDeepLink("myapp://assurance?adb_validation_sessionid=not-a-uuid&env=stage")
	assert.ErrorIs(t, err, ErrInvalidSessionID)

	_, err = ParseDeepLink("myapp://assurance?env=stage")
	assert.ErrorIs(t, err, ErrInvalidDeepLink)

	_, err = ParseDeepLink("")
	assert.ErrorIs(t, err, ErrInvalidDeepLink)

	_, err = ParseDeepLink("://bad")
	assert.ErrorIs(t, err, ErrInvalidDeepLink)
}

func TestParseEnvironment(t *testing.T) {
	testlog.Start(t)
	cases := map[string]Environment{
		"":        EnvProd,
		"prod":    EnvProd,
		"STAGE":   EnvStage,
		"qa":      EnvQA,
		"dev":     EnvDev,
		"unknown": EnvProd,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseEnvironment(raw), raw)
	}
	assert.Equal(t, "", EnvProd.URLFormat())
	assert.Equal(t, "-qa", EnvQA.URLFormat())
}

func TestSocketURLRequiresAuthentication(t *testing.T) {
	testlog.Start(t)
	d, err := NewDetails("0E8C1F43-2DD2-4C1A-A7E8-3A2B30D2C0F1", EnvProd)
	require.NoError(t, err)
	_, err = d.SocketURL("", "client")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	d.Authenticate("4321", "A1B2@AdobeOrg")
	got, err := d.SocketURL("", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "wss://connect.griffon.adobe.com/client/v1?sessionId=0E8C1F43-2DD2-4C1A-A7E8-3A2B30D2C0F1&token=4321&orgId=A1B2%40AdobeOrg&clientId=c-1", got)
}

func TestClassifyClose(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		code      int
		kind      CloseKind
		retryable bool
		terminal  bool
		err       ConnectionError
	}{
		{transport.CloseNormal, CloseNormal, false, false, ErrGeneric},
		{transport.CloseOrgMismatch, CloseOrgMismatch, false, true, ErrOrgIDMismatch},
		{transport.CloseConnectionLimit, CloseConnectionLimit, false, true, ErrConnectionLimit},
		{transport.CloseEventLimit, CloseEventLimit, false, true, ErrEventLimit},
		{transport.CloseClientError, CloseClientProtocol, false, true, ErrClientError},
		{transport.CloseAbnormal, CloseAbnormal, true, false, ErrGeneric},
		{1011, CloseAbnormal, true, false, ErrGeneric},
	}
	for _, tc := range cases {
		r := ClassifyClose(tc.code, "")
		assert.Equal(t, tc.kind, r.Kind, "code %d", tc.code)
		assert.Equal(t, tc.retryable, r.Retryable(), "code %d", tc.code)
		assert.Equal(t, tc.terminal, r.Terminal(), "code %d", tc.code)
		assert.Equal(t, tc.err, r.ConnectionError(), "code %d", tc.code)
	}
}

func TestReconnectDelay(t *testing.T) {
	testlog.Start(t)
	def := DefaultConfig().Reconnect
	assert.Equal(t, time.Duration(0), ReconnectDelay(def, 1))
	assert.Equal(t, 5*time.Second, ReconnectDelay(def, 2))
	assert.Equal(t, 5*time.Second, ReconnectDelay(def, 7))

	grow := ReconnectConfig{Delay: time.Second, Multiplier: 2, MaxDelay: 3 * time.Second}
	assert.Equal(t, time.Second, ReconnectDelay(grow, 2))
	assert.Equal(t, 2*time.Second, ReconnectDelay(grow, 3))
	assert.Equal(t, 3*time.Second, ReconnectDelay(grow, 4))
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{ChunkSize: 512}.WithDefaults()
	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, 200, cfg.OutboundCapacity)
	assert.Equal(t, 5*time.Second, cfg.Reconnect.Delay)
	assert.Equal(t, 1.0, cfg.Reconnect.Multiplier)
}
