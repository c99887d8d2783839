package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "text", Output: &buf})
	defer Init(Config{})

	Debug("loading base revision", "file", "main.go")

	out := buf.String()
	assert.Contains(t, out, "loading base revision")
	assert.Contains(t, out, "file=main.go")
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(Config{})

	Info("tracker installed", "file", "a.go")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "tracker installed", rec["msg"])
	assert.Equal(t, "a.go", rec["file"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	defer Init(Config{})

	Debug("dropped")
	Info("dropped too")
	Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	defer Init(Config{})

	Debug("before")
	SetLevel("debug")
	Debug("after")

	out := buf.String()
	assert.NotContains(t, out, "before")
	assert.Contains(t, out, "after")
}

func TestParseLevel_Defaults(t *testing.T) {
	for _, name := range []string{"", "bogus", "INFO"} {
		assert.Equal(t, "INFO", strings.ToUpper(parseLevel(name).String()), "level %q", name)
	}
}

func TestWith_BindsAttributes(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	defer Init(Config{})

	With("component", "manager").Debug("reset")

	assert.Contains(t, buf.String(), "component=manager")
}
