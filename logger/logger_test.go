package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l, err := New(&buf, "warn", false)
		require.NoError(t, err)

		l.Info().Msg("hidden")
		l.Warn().Str("room_id", "ABC123").Msg("shown")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, "ABC123", entry["room_id"])
		assert.Equal(t, "shown", entry["message"])
		assert.Contains(t, entry, "time")
	})

	t.Run("Pretty", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l, err := New(&buf, "debug", true)
		require.NoError(t, err)

		l.Debug().Str("player_id", "A").Msg("attached")

		assert.Contains(t, buf.String(), "attached")
		assert.Contains(t, buf.String(), "player_id=")
		assert.False(t, json.Valid(buf.Bytes()))
	})

	t.Run("Empty Level Means Info", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l, err := New(&buf, "", false)
		require.NoError(t, err)

		l.Debug().Msg("hidden")
		assert.Empty(t, buf.String())
	})

	t.Run("Bad Level", func(t *testing.T) {
		t.Parallel()
		_, err := New(&bytes.Buffer{}, "loud", false)
		assert.Error(t, err)
	})
}
