package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

func completed(url string, code int, d time.Duration) http.Response {
	return http.Response{
		Status:       http.StatusCompleted,
		ResponseCode: code,
		Method:       "GET",
		URL:          url,
		Duration:     d,
	}
}

func TestRecorderCountsOutcomes(t *testing.T) {
	r := NewRecorder()
	r.Start()

	r.Observe(completed("http://a/", 200, 10*time.Millisecond))
	r.Observe(completed("http://a/", 500, 20*time.Millisecond))
	r.Observe(http.Response{Status: http.StatusNoResponse, Method: "GET", URL: "http://b/", Duration: time.Minute})
	r.Observe(http.Response{Status: http.StatusFailedUnableToConnect, Method: "GET", URL: "http://c/"})
	r.Observe(http.Response{Status: http.StatusFailedTooManyConcurrentRequests, Method: "GET", URL: "http://d/"})

	r.Stop()
	s := r.Summary()

	assert.Equal(t, int64(5), s.Total)
	assert.Equal(t, int64(2), s.Completed)
	assert.Equal(t, int64(1), s.Success)
	assert.Equal(t, int64(3), s.Errors)
	assert.Equal(t, int64(1), s.Timeouts)
	assert.Equal(t, int64(1), s.Rejected)
	assert.InDelta(t, 0.25, s.SuccessRate, 0.001)
	assert.InDelta(t, 0.75, s.ErrorRate, 0.001)

	assert.Equal(t, int64(2), s.Statuses["Completed"])
	assert.Equal(t, int64(1), s.Statuses["Failed_TooManyConcurrentRequests"])
	assert.Equal(t, map[int]int64{200: 1, 500: 1}, s.Codes)
}

func TestRecorderLatencyOnlyFromCompleted(t *testing.T) {
	r := NewRecorder()

	r.Observe(completed("http://a/", 200, 10*time.Millisecond))
	r.Observe(http.Response{Status: http.StatusNoResponse, Duration: 61 * time.Second})

	s := r.Summary()
	assert.InDelta(t, float64(10*time.Millisecond), float64(s.Max), float64(50*time.Microsecond))
	assert.InDelta(t, float64(10*time.Millisecond), float64(s.Min), float64(50*time.Microsecond))
}

func TestRecorderPercentiles(t *testing.T) {
	r := NewRecorder()
	r.Start()

	for i := 0; i < 100; i++ {
		r.Observe(completed("http://a/", 200, time.Duration(i+1)*time.Millisecond))
	}

	r.Stop()
	s := r.Summary()

	assert.Equal(t, int64(100), s.Total)
	assert.InDelta(t, 1.0, s.SuccessRate, 0.001)
	assert.True(t, s.P50 > 0)
	assert.True(t, s.P95 > s.P50)
	assert.True(t, s.P99 >= s.P95)
	assert.True(t, s.Max >= s.P99)
	assert.True(t, s.Min > 0)
	assert.InDelta(t, float64(50*time.Millisecond), float64(s.P50), float64(time.Millisecond))
}

func TestRecorderClampsLatency(t *testing.T) {
	r := NewRecorder()

	r.Observe(completed("http://a/", 200, 0))
	r.Observe(completed("http://a/", 200, 2*time.Minute))

	s := r.Summary()
	assert.Equal(t, time.Microsecond, s.Min)
	assert.InDelta(t, float64(60*time.Second), float64(s.Max), float64(100*time.Millisecond))
}

func TestRecorderTargets(t *testing.T) {
	r := NewRecorder()

	r.Observe(completed("http://a/", 200, 10*time.Millisecond))
	r.Observe(completed("http://a/", 200, 12*time.Millisecond))
	r.Observe(completed("http://b/", 404, 5*time.Millisecond))
	r.Observe(http.Response{Status: http.StatusFailedTooManyConcurrentRequests, Method: "GET", URL: "http://b/"})

	s := r.Summary()
	require.Len(t, s.Targets, 2)

	a := s.Targets["GET http://a/"]
	require.NotNil(t, a)
	assert.Equal(t, int64(2), a.Total)
	assert.Equal(t, int64(2), a.Success)

	b := s.Targets["GET http://b/"]
	require.NotNil(t, b)
	assert.Equal(t, int64(1), b.Total)
	assert.Equal(t, int64(1), b.Errors)
}

func TestRecorderRPS(t *testing.T) {
	r := NewRecorder()
	r.Start()
	r.Observe(completed("http://a/", 200, time.Millisecond))
	r.Observe(http.Response{Status: http.StatusFailedTooManyConcurrentRequests})
	time.Sleep(10 * time.Millisecond)
	r.Stop()

	s := r.Summary()
	assert.True(t, s.Duration >= 10*time.Millisecond)
	assert.InDelta(t, 1/s.Duration.Seconds(), s.RPS, 0.0001)
}

func TestRecorderWithoutStart(t *testing.T) {
	r := NewRecorder()
	r.Observe(completed("http://a/", 200, time.Millisecond))

	s := r.Summary()
	assert.Equal(t, time.Duration(0), s.Duration)
	assert.Equal(t, float64(0), s.RPS)
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder()
	r.Start()
	r.Observe(completed("http://a/", 200, time.Millisecond))
	r.Reset()

	s := r.Summary()
	assert.Equal(t, int64(0), s.Total)
	assert.Empty(t, s.Codes)
	assert.Empty(t, s.Targets)
	assert.Equal(t, time.Duration(0), s.Max)
}

func TestRecorderIsAnObserver(t *testing.T) {
	var _ http.Observer = NewRecorder()
}
