package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"example.com/backstage/dashboard/internal/metrics"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNames struct {
	mock.Mock
}

func (m *mockNames) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type countingSimulation struct {
	runs atomic.Int32
	err  error
}

func (s *countingSimulation) Init(ctx context.Context) error {
	s.runs.Add(1)
	return s.err
}

func TestRunOnceRefreshesBoth(t *testing.T) {
	names := new(mockNames)
	names.On("Refresh", mock.Anything).Return(nil).Once()
	sim := &countingSimulation{}
	m := metrics.NewMetrics()

	r := NewRefresher(time.Minute, sim, names, m)
	require.NoError(t, r.RunOnce(context.Background()))

	assert.Equal(t, int32(1), sim.runs.Load())
	names.AssertExpectations(t)
	assert.Equal(t, int64(0), m.GetErrorRates()["worker.refresh"].Errors)
}

func TestRunOnceReportsFailure(t *testing.T) {
	names := new(mockNames)
	names.On("Refresh", mock.Anything).Return(nil)
	sim := &countingSimulation{err: errors.New("backend down")}
	m := metrics.NewMetrics()

	err := NewRefresher(time.Minute, sim, names, m).RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh simulation")
	assert.Equal(t, int64(1), m.GetErrorRates()["worker.refresh"].Errors)
}

func TestRunSchedulesUntilCancelled(t *testing.T) {
	names := new(mockNames)
	names.On("Refresh", mock.Anything).Return(nil)
	sim := &countingSimulation{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRefresher(20*time.Millisecond, sim, names, nil).Run(ctx) }()

	require.Eventually(t, func() bool { return sim.runs.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	err := NewRefresher(0, &countingSimulation{}, new(mockNames), nil).Run(context.Background())
	assert.Error(t, err)
}
