package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" Warning "))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestNewWritesJSONToBuffers(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")
	log.Debug().Msg("hidden")
	log.Info().Str("path", "a.png").Msg("saved sheet")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "saved sheet", line["message"])
	assert.Equal(t, "a.png", line["path"])
	assert.Equal(t, "info", line["level"])
}
