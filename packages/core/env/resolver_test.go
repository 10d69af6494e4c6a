package env

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(env map[string]string) *Resolver {
	r := NewResolver()
	r.lookupEnv = func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
	return r
}

func TestResolve(t *testing.T) {
	r := newTestResolver(map[string]string{"TOKEN": "s3cret"})
	r.SetVariables(map[string]any{"baseUrl": "http://localhost:8080", "id": 42})
	r.SetCapture("login", "session", "abc")

	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"{{baseUrl}}/users/{{id}}", "http://localhost:8080/users/42"},
		{"{{ baseUrl }}", "http://localhost:8080"},
		{"Bearer {{$TOKEN}}", "Bearer s3cret"},
		{"{{login.session}}-{{session}}", "abc-abc"},
		{"{{missing}}", "{{missing}}"},
		{"{{$MISSING}}", "{{$MISSING}}"},
		{"{{nope()}}", "{{nope()}}"},
		{"{{base64(user:pw)}}", base64.StdEncoding.EncodeToString([]byte("user:pw"))},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.input))
		})
	}
}

func TestResolve_CaptureShadowsVariable(t *testing.T) {
	r := newTestResolver(nil)
	r.SetVariable("token", "from-file")
	r.SetCapture("", "token", "captured")

	assert.Equal(t, "captured", r.Resolve("{{token}}"))
}

func TestResolve_Builtins(t *testing.T) {
	r := newTestResolver(nil)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}$`), r.Resolve("{{uuid()}}"))

	ts, err := strconv.ParseInt(r.Resolve("{{timestamp()}}"), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, ts, int64(1_600_000_000))

	ms, err := strconv.ParseInt(r.Resolve("{{timestampMs()}}"), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, ms, ts)

	for i := 0; i < 20; i++ {
		n, err := strconv.Atoi(r.Resolve("{{randomInt(5, 7)}}"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 5)
		assert.LessOrEqual(t, n, 7)
	}

	assert.Equal(t, "{{randomInt(9, 1)}}", r.Resolve("{{randomInt(9, 1)}}"))
}

func TestResolve_Warns(t *testing.T) {
	r := newTestResolver(nil)
	var warnings []string
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, format)
	})

	r.Resolve("{{a}} {{$B}} {{c()}}")

	assert.Equal(t, []string{
		"unresolved variable: %s",
		"unresolved environment variable: $%s",
		"unresolved function call: %s",
	}, warnings)
}

func TestUnresolved(t *testing.T) {
	r := newTestResolver(map[string]string{"HOME": "/root"})
	r.SetVariable("foo", "bar")
	r.SetCapture("setup", "projectId", "123")

	assert.Empty(t, r.Unresolved("no templates"))
	assert.Empty(t, r.Unresolved("{{foo}} {{$HOME}} {{setup.projectId}} {{uuid()}}"))
	assert.Equal(t, []string{"$NOPE", "bar", "zed"}, r.Unresolved("{{zed}} {{bar}} {{zed}} {{$NOPE}} {{foo}}"))
}

func TestResolveAll(t *testing.T) {
	r := newTestResolver(nil)
	r.SetVariable("v", "1")

	assert.Equal(t, map[string]string{"a": "1", "b": "x"}, r.ResolveAll(map[string]string{"a": "{{v}}", "b": "x"}))
}

func TestClone(t *testing.T) {
	r := newTestResolver(nil)
	r.SetVariable("a", "1")

	c := r.Clone()
	c.SetVariable("a", "2")
	c.SetCapture("", "b", "3")

	v, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = r.Lookup("b")
	assert.False(t, ok)

	v, ok = c.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "3", v)
}
