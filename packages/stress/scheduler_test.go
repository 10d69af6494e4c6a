package stress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

func TestSchedulerSelectEmpty(t *testing.T) {
	s := NewScheduler(DefaultConfig())

	_, ok := s.Select()
	assert.False(t, ok)
	assert.Equal(t, 0, s.TargetCount())
}

func TestSchedulerSelectSingle(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	s.AddTarget(Target{Name: "only", Request: http.NewRequest("GET", "http://a/")})

	for i := 0; i < 10; i++ {
		target, ok := s.Select()
		require.True(t, ok)
		assert.Equal(t, "only", target.Name)
	}
}

func TestSchedulerSelectWeighted(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	s.AddTarget(Target{Name: "heavy", Weight: 90})
	s.AddTarget(Target{Name: "light", Weight: 10})

	counts := make(map[string]int)
	iterations := 10000
	for i := 0; i < iterations; i++ {
		target, ok := s.Select()
		require.True(t, ok)
		counts[target.Name]++
	}

	assert.InDelta(t, 0.9, float64(counts["heavy"])/float64(iterations), 0.05)
	assert.InDelta(t, 0.1, float64(counts["light"])/float64(iterations), 0.05)
}

func TestSchedulerDefaultWeight(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	s.AddTarget(Target{Name: "a"})
	s.AddTarget(Target{Name: "b", Weight: -3})

	assert.Equal(t, []int{1, 1}, s.weights)
	assert.Equal(t, 2, s.totalWeight)
}

func TestSchedulerAllowBurstCoversOneTick(t *testing.T) {
	cfg := &Config{Duration: time.Minute, Rate: 1000, Tick: 10 * time.Millisecond}
	s := NewScheduler(cfg)

	allowed := 0
	for s.Allow() {
		allowed++
		if allowed > 100 {
			break
		}
	}

	assert.GreaterOrEqual(t, allowed, 10)
	assert.Less(t, allowed, 20)
}

func TestSchedulerAllowMinimumBurst(t *testing.T) {
	cfg := &Config{Duration: time.Minute, Rate: 1, Tick: 10 * time.Millisecond}
	s := NewScheduler(cfg)

	assert.True(t, s.Allow())
	assert.False(t, s.Allow())
}
