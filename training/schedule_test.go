package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCosineSchedule covers the three phases: warmup ramp, cosine decay,
// floor.
func TestCosineSchedule(t *testing.T) {
	s := newCosineSchedule(1.0, 0.1, 10, 110)

	require.InDelta(t, 0.5, s.LearningRate(5), 1e-12, "halfway through warmup")
	require.InDelta(t, 1.0, s.LearningRate(10), 1e-12, "warmup ends at the base rate")

	mid := s.LearningRate(60) // halfway through decay, cos(π/2) = 0
	require.InDelta(t, 0.1+(1.0-0.1)*0.5, mid, 1e-12)

	require.InDelta(t, 0.1, s.LearningRate(110), 1e-12, "decay ends at the floor")
	require.InDelta(t, 0.1, s.LearningRate(10000), 1e-12, "floor holds")

	for step := 1; step < 200; step++ {
		lr := s.LearningRate(step)
		require.False(t, math.IsNaN(lr))
		require.GreaterOrEqual(t, lr, 0.0)
		require.LessOrEqual(t, lr, 1.0)
	}
}

// TestConstantSchedule verifies the default policy.
func TestConstantSchedule(t *testing.T) {
	s := constantSchedule(0.01)
	require.Equal(t, 0.01, s.LearningRate(1))
	require.Equal(t, 0.01, s.LearningRate(9999))
}
