package monitoring

import (
	"testing"

	"CampusNotify/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(&config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	logger, err := NewLogger(&config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.MessagesCreated.WithLabelValues("scheduled").Inc()
	m.EmailDeliveries.WithLabelValues("sent").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesCreated.WithLabelValues("scheduled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EmailDeliveries.WithLabelValues("sent")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
