package logging

import (
	"bytes"
	"io"

	"github.com/rs/zerolog"
)

type teeWriter struct {
	out   zerolog.ConsoleWriter
	floor zerolog.Level
	skip  [][]byte
}

func newTeeWriter(w io.Writer, floor zerolog.Level, skip []string) *teeWriter {
	t := &teeWriter{
		out: zerolog.ConsoleWriter{
			Out:          w,
			NoColor:      true,
			PartsExclude: []string{zerolog.TimestampFieldName},
		},
		floor: floor,
	}
	for _, prefix := range skip {
		t.skip = append(t.skip, []byte(`"`+zerolog.MessageFieldName+`":"`+prefix))
	}
	return t
}

func (t *teeWriter) Write(p []byte) (int, error) {
	return t.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel never fails the primary log write.
func (t *teeWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < t.floor {
		return len(p), nil
	}
	for _, pattern := range t.skip {
		if bytes.Contains(p, pattern) {
			return len(p), nil
		}
	}
	_, _ = t.out.Write(p)
	return len(p), nil
}
