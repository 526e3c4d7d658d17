package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/orderflow-api/pkg/logger"
)

func TestNew_JSONConNivel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "warn", Output: &buf})

	l.Info().Msg("descartado")
	l.Warn().Str("product_id", "P1").Msg("stock bajo")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "P1", entry["product_id"])
	assert.Contains(t, entry, "time")
}

func TestNew_NivelDesconocidoEsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Level: "verboso", Output: &buf})

	l.Debug().Msg("no")
	l.Info().Msg("si")

	assert.NotContains(t, buf.String(), `"no"`)
	assert.Contains(t, buf.String(), `"si"`)
}

func TestComponent_AgregaCampo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Level: "warning", Output: &buf})

	c := l.Component("order_saga")
	c.Warn().Msg("abortada")

	assert.Contains(t, buf.String(), `"component":"order_saga"`)
}
