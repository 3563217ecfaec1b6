package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWith(reg)

	r.QueueDepth.Set(3)
	r.EventsDropped.Inc()
	r.DataSourceStale.Set(12)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}
