package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput("debug", "json", &buf)
	require.NoError(t, err)

	logger.WithFields(logrus.Fields{
		FieldComponent: ComponentEngine,
		FieldUserID:    "emp-1",
	}).Info("days consumed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "days consumed", line["msg"])
	assert.Equal(t, ComponentEngine, line[FieldComponent])
	assert.Equal(t, "emp-1", line[FieldUserID])
}

func TestNewWithOutput_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput("warn", "text", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithOutput_Invalid(t *testing.T) {
	_, err := NewWithOutput("loud", "text", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = NewWithOutput("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)
}
