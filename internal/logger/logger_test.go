package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	Debug("dropped")
	Info("dropped")
	Warn("kept", KeySubmessage, "HEARTBEAT")
	Error("kept too", KeyError, "boom")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "kept too")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")
	SetFormat("json")
	defer SetFormat("text")

	Info("heartbeat sent", KeyTopic, "Square", KeySeqNum, int64(7))

	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "heartbeat sent", entry["msg"])
	assert.Equal(t, "Square", entry[KeyTopic])
}

func TestContextPropagation(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")
	SetFormat("json")
	defer SetFormat("text")

	lc := NewLogContext("Write").WithTopic("Square").WithRemote("guid-1")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "sample written")

	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "Write", entry[KeyOperation])
	assert.Equal(t, "Square", entry[KeyTopic])
	assert.Equal(t, "guid-1", entry[KeyRemoteGUID])
}

func TestFromContextNil(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Nil(t, FromContext(nil))
}

func TestLogContextClone(t *testing.T) {
	lc := NewLogContext("Read")
	clone := lc.WithTopic("Square")
	assert.Empty(t, lc.Topic)
	assert.Equal(t, "Square", clone.Topic)
}
