package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ProdIsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter("prod", buf)
	log.Debug("hidden")
	log.Info("decided", "tx_id", "t1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "decided", line["msg"])
	assert.Equal(t, "t1", line["tx_id"])
	assert.Equal(t, "custodial-ledger", line["service"])
}

func TestNewWithWriter_DevLogsDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	NewWithWriter("dev", buf).Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}
