package history

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample(url string) http.Response {
	return http.Response{
		Status:        http.StatusCompleted,
		ResponseCode:  200,
		ContentType:   "application/json",
		ContentLength: 11,
		Server:        "nginx",
		Body:          `{"ok":true}`,
		RequestID:     "req-" + url,
		Method:        "GET",
		URL:           url,
		Duration:      1500 * time.Microsecond,
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Record(ctx, sample("http://a/")))
	require.NoError(t, s.Record(ctx, sample("http://b/")))
	require.NoError(t, s.Record(ctx, http.Response{Status: http.StatusNoResponse, Method: "GET", URL: "http://c/"}))

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "http://c/", entries[0].URL)
	assert.Equal(t, "NoResponse", entries[0].Status)
	assert.Equal(t, 0, entries[0].Code)

	b := entries[1]
	assert.Equal(t, "http://b/", b.URL)
	assert.Equal(t, "Completed", b.Status)
	assert.Equal(t, 200, b.Code)
	assert.Equal(t, "application/json", b.ContentType)
	assert.Equal(t, 11, b.ContentLength)
	assert.Equal(t, "nginx", b.Server)
	assert.Equal(t, `{"ok":true}`, b.Body)
	assert.Equal(t, "req-http://b/", b.RequestID)
	assert.Equal(t, 1500*time.Microsecond, b.Duration)
	assert.True(t, fixed.Equal(b.CreatedAt))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecentZero(t *testing.T) {
	s := openTemp(t)
	entries, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordTruncatesBody(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	resp := sample("http://big/")
	resp.Body = strings.Repeat("x", MaxBodyBytes+100)
	require.NoError(t, s.Record(ctx, resp))

	entries, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Body, MaxBodyBytes)
}

func TestPrune(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for _, u := range []string{"http://1/", "http://2/", "http://3/", "http://4/"} {
		require.NoError(t, s.Record(ctx, sample(u)))
	}

	removed, err := s.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "http://4/", entries[0].URL)
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, sample("http://a/")))
	require.NoError(t, s.Close())

	s, err = Open("sqlite:" + path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(context.Background(), sample("http://a/")))
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClosedStore(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.ErrorIs(t, s.Record(ctx, sample("http://a/")), ErrClosed)
	_, err = s.Recent(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Count(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Prune(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "sqlite://./h.db", want: "./h.db"},
		{in: "sqlite:h.db", want: "h.db"},
		{in: " /tmp/h.db ", want: "/tmp/h.db"},
		{in: ":memory:", want: ":memory:"},
		{in: "postgres://u@h/db", wantErr: true},
		{in: "sqlite://", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseConnectionString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObserver(t *testing.T) {
	s := openTemp(t)
	obs := s.Observer(nil)

	obs.Observe(sample("http://a/"))
	obs.Observe(http.Response{Status: http.StatusFailedInvalidURL, Method: "GET", URL: "nope"})

	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Failed_InvalidUrl", entries[0].Status)
}

func TestObserverLogsWriteErrors(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	var logs bytes.Buffer
	obs := s.Observer(slog.New(slog.NewTextHandler(&logs, nil)))
	obs.Observe(sample("http://a/"))

	assert.Contains(t, logs.String(), "failed to record response")
	assert.Contains(t, logs.String(), ErrClosed.Error())
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(context.Background(), sample("http://a/")))
	assert.FileExists(t, path)
}
