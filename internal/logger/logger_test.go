package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info("hidden")
	log.With("budget", "pages/").Warnf("Invalid size format: %q", "bogus")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "pages/", entry["budget"])
	assert.Equal(t, `Invalid size format: "bogus"`, entry["message"])
}

func TestNewWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud", "json")

	log.Debug("dropped")
	log.Error("kept", errors.New("boom"))

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "boom")
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Errorf("nothing %d", 1)
	log.Warnf("nothing %d", 2)
}
