package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithLevel(t *testing.T) {
	t.Run("should emit JSON with service attribute and lowercase level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithLevel(&buf, "finance-insight", "info")

		log.Info("batch started", "tasks", 3)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "finance-insight", entry["service"])
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "batch started", entry["msg"])
		assert.EqualValues(t, 3, entry["tasks"])
	})

	t.Run("should suppress debug output at default level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithLevel(&buf, "finance-insight", "")

		log.Debug("noisy detail")

		assert.Zero(t, buf.Len())
	})

	t.Run("should honor debug level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithLevel(&buf, "finance-insight", "debug")

		log.Debug("noisy detail")

		assert.NotZero(t, buf.Len())
	})
}
