package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldError struct{}

func (fieldError) Error() string { return "boom" }

func (fieldError) LogFields() []Field {
	return []Field{String("error_code", "E42")}
}

func TestNewWithOutput_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput(&buf, "debug", true)
	require.NoError(t, err)

	log.WithComponent("phone").WithFields(Uint32("call_id", 7)).Info("call created", Bool("video", true))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "call created", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "phone", entry["component"])
	assert.Equal(t, float64(7), entry["call_id"])
	assert.Equal(t, true, entry["video"])
	assert.True(t, log.IsDebug())
}

func TestNewWithOutput_InvalidLevel(t *testing.T) {
	_, err := NewWithOutput(&bytes.Buffer{}, "loud", false)
	assert.Error(t, err)
}

func TestLogError_AddsErrorFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput(&buf, "info", true)
	require.NoError(t, err)

	log.LogError(fieldError{}, "failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "E42", entry["error_code"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput(&buf, "warn", false)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Zero(t, buf.Len())
	assert.False(t, log.IsDebug())

	log.LogError(errors.New("plain"), "visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Error("nothing")
		log.WithComponent("x").Warn("nothing")
	})
}
