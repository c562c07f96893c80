package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("prod", &buf)

	l.Debug("hidden")
	l.With("request_id", "r1").ErrorErr("create course", errors.New("boom"), "slug", "go")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "create course", rec["msg"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, "r1", rec["request_id"])
	assert.Equal(t, "go", rec["slug"])
}

func TestNewWithWriter_LocalIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("local", &buf).Debug("visible")

	assert.Contains(t, buf.String(), "visible")
}
