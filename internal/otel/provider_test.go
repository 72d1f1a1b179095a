package otel

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutOutputs(t *testing.T) {
	_, err := New(Config{Enabled: true})
	assert.ErrorContains(t, err, "no log writer or endpoint")
}

func TestNew_ExportsMetrics(t *testing.T) {
	var logs, metrics bytes.Buffer
	p, err := New(Config{Enabled: true, LogWriter: &logs, MetricWriter: &metrics})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	counter, err := p.Meter("test").Int64Counter("combat.shots")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Flush(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, metrics.String(), "combat.shots")
}

func TestNew_LogsOnlyKeepsNoopMeter(t *testing.T) {
	var logs bytes.Buffer
	p, err := New(Config{Enabled: true, ServiceVersion: "1.2.0", LogWriter: &logs})
	require.NoError(t, err)
	assert.True(t, p.Enabled())
	assert.NotNil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	assert.NoError(t, p.Shutdown(context.Background()))
}
