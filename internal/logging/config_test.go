package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		" DEBUG ":  zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"inactive": zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"", "loud"} {
		got, ok := ParseLevel(raw)
		assert.False(t, ok, raw)
		assert.Equal(t, zerolog.InfoLevel, got)
	}
}

func TestApplyBypassWritesJSONAtLevel(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { setLogger(prev) })

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.WarnLevel, Bypass: true, Out: &buf})
	Infof("hidden n=%d", 1)
	Warnf("shown n=%d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	require.Contains(t, out, `"message":"shown n=2"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestDefaultConfigByProfile(t *testing.T) {
	rt := defaultConfig(ProfileRuntime)
	assert.Equal(t, zerolog.InfoLevel, rt.Level)
	assert.True(t, rt.Timestamp)

	tc := defaultConfig(ProfileTest)
	assert.Equal(t, zerolog.DebugLevel, tc.Level)
	assert.False(t, tc.Timestamp)
	assert.Equal(t, []string{zerolog.TimestampFieldName}, partsExclude(tc))
}

func TestTeeForwardsAboveFloorAndSkipsPrefixes(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() {
		Tee(nil, zerolog.InfoLevel)
		setLogger(prev)
	})

	var primary, teed bytes.Buffer
	Apply(Config{Level: zerolog.DebugLevel, Bypass: true, Out: &primary})
	Tee(&teed, zerolog.InfoLevel, "session.")

	Debugf("below floor")
	Infof("session.Session.drain skipped")
	Warnf("kept n=%d", 3)

	assert.Contains(t, primary.String(), "below floor")
	assert.Contains(t, primary.String(), "session.Session.drain skipped")
	assert.Contains(t, primary.String(), "kept n=3")

	lines := strings.Split(strings.TrimSpace(teed.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "WRN")
	assert.Contains(t, lines[0], "kept n=3")

	Tee(nil, zerolog.InfoLevel)
	Errorf("after removal")
	assert.NotContains(t, teed.String(), "after removal")
	assert.Contains(t, primary.String(), "after removal")
}
