package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_SeparateRegistries(t *testing.T) {
	// creating two managers must not panic on duplicate registration
	m1, reg1 := NewTestManagerAndRegistry()
	m2, _ := NewTestManagerAndRegistry()
	require.NotNil(t, m1)
	require.NotNil(t, m2)

	m1.CounterPageViews.Inc()
	m1.CounterPageViews.Inc()
	m1.CounterLogins.WithLabelValues("success").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m1.CounterPageViews))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.CounterPageViews))
	assert.Equal(t, 1.0, testutil.ToFloat64(m1.CounterLogins.WithLabelValues("success")))

	count, err := testutil.GatherAndCount(reg1, "backend_test_server_page_views")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSetupPrometheus(t *testing.T) {
	m, _ := NewTestManagerAndRegistry()
	reg := SetupPrometheus(m.CounterPageViewsDropped)
	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}
