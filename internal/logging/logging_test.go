package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "warn", "json")
	t.Cleanup(func() { Setup(&bytes.Buffer{}, "info", "text") })

	log.Info("dropped")
	log.WithField("plant_id", "p-1").Warn("slot unreadable")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "slot unreadable", entry["message"])
	assert.Equal(t, "warn", entry["level"])
}

func TestSetup_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "chatty", "text")
	log.Debug("hidden")
	log.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
