package stress

import (
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

// Target is a request the bench may send
type Target struct {
	Name    string
	Request *http.Request
	Weight  int
}

// Scheduler paces sends and picks which target goes next
type Scheduler struct {
	limiter *rate.Limiter

	targets     []Target
	weights     []int
	totalWeight int
	rand        *rand.Rand
}

// NewScheduler creates a scheduler for cfg. The limiter's burst covers one
// tick at the target rate, so a tick can catch up on what it is owed.
func NewScheduler(cfg *Config) *Scheduler {
	burst := int(math.Ceil(cfg.Rate * cfg.Tick.Seconds()))
	if burst < 1 {
		burst = 1
	}
	return &Scheduler{
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), burst),
		rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// AddTarget registers a target. A non-positive weight counts as 1.
func (s *Scheduler) AddTarget(t Target) {
	if t.Weight < 1 {
		t.Weight = 1
	}
	s.targets = append(s.targets, t)
	s.weights = append(s.weights, t.Weight)
	s.totalWeight += t.Weight
}

// Allow reports whether another request may be sent now. It never blocks.
func (s *Scheduler) Allow() bool {
	return s.limiter.Allow()
}

// Select picks a target at random in proportion to its weight
func (s *Scheduler) Select() (Target, bool) {
	switch len(s.targets) {
	case 0:
		return Target{}, false
	case 1:
		return s.targets[0], true
	}

	r := s.rand.IntN(s.totalWeight)
	cumulative := 0
	for i, w := range s.weights {
		cumulative += w
		if r < cumulative {
			return s.targets[i], true
		}
	}
	return s.targets[len(s.targets)-1], true
}

func (s *Scheduler) TargetCount() int {
	return len(s.targets)
}
