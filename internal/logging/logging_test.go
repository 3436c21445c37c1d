// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLevels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Init(&buf, false, FormatText)
	slog.Debug("hidden")
	slog.Warn("shown", "id", "r1")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "id=r1")

	buf.Reset()
	Init(&buf, true, FormatText)
	slog.Debug("visible now")
	assert.Contains(t, buf.String(), "visible now")
}

func TestInitJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Init(&buf, true, FormatJSON)
	logger.Info("lookup", "resource", "/isbn/123")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "lookup", rec["msg"])
	assert.Equal(t, "/isbn/123", rec["resource"])
	assert.NotEmpty(t, rec["time"])
}
