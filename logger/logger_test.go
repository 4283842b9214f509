package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewText(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	l := New(Config{Level: "warn", Output: buf})
	l.Info("hidden")
	l.Warn("shown", "k", 1)

	out := buf.String()
	assert.False(strings.Contains(out, "hidden"))
	assert.True(strings.Contains(out, "msg=shown"))
	assert.True(strings.Contains(out, "k=1"))
}

func TestNewJSON(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	l := New(Config{Level: "DEBUG", Format: "json", Output: buf})
	l.Debug("scan", "table", "example")

	rec := map[string]any{}
	assert.NoError(json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal("scan", rec["msg"])
	assert.Equal("example", rec["table"])
	assert.Equal("DEBUG", rec["level"])
}

func TestInitGet(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	Init(Config{Level: "INFO", Output: buf})
	Info("hello")
	Debug("quiet")
	assert.True(strings.Contains(buf.String(), "msg=hello"))
	assert.False(strings.Contains(buf.String(), "quiet"))
	assert.NotNil(Get())
}
