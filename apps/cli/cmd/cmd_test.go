package cmd

import (
	"bytes"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pollhttp/packages/core/batch"
	"github.com/abdul-hamid-achik/pollhttp/packages/core/config"
	"github.com/abdul-hamid-achik/pollhttp/packages/transport"
)

func resetSendFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		sendHeaderFlags, sendDataFlag, sendJSONFlag, sendFormFlags = nil, "", "", nil
	})
}

func TestBuildSendRequest(t *testing.T) {
	resetSendFlags(t)

	sendJSONFlag = `{"a":1}`
	sendHeaderFlags = []string{"X-Trace: abc", "content-type: application/vnd.api+json"}

	req, err := buildSendRequest("post", "http://h/x")
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, `{"a":1}`, req.Body)
	assert.Equal(t, "application/vnd.api+json", req.Header("Content-Type"))
	assert.Equal(t, "7", req.Header("Content-Length"))
	assert.Equal(t, "abc", req.Header("X-Trace"))
}

func TestBuildSendRequest_Form(t *testing.T) {
	resetSendFlags(t)

	sendFormFlags = []string{"user=ada", "pw=a=b"}
	req, err := buildSendRequest("POST", "http://h/login")
	require.NoError(t, err)
	assert.Equal(t, "pw=a%3Db&user=ada", req.Body)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header("Content-Type"))

	sendFormFlags = []string{"novalue"}
	_, err = buildSendRequest("POST", "http://h/login")
	assert.ErrorContains(t, err, "want key=value")
}

func TestBuildSendRequest_Errors(t *testing.T) {
	resetSendFlags(t)

	sendDataFlag, sendJSONFlag = "x", "{}"
	_, err := buildSendRequest("POST", "http://h")
	assert.ErrorContains(t, err, "only one of")

	sendDataFlag, sendJSONFlag = "", ""
	sendHeaderFlags = []string{"broken"}
	_, err = buildSendRequest("GET", "http://h")
	assert.ErrorContains(t, err, "invalid header")
}

func TestLocalIPFor(t *testing.T) {
	assert.Equal(t, transport.OutboundIP{}, localIPFor(""))
	assert.Equal(t, transport.OutboundIP{}, localIPFor("auto"))
	assert.Equal(t, transport.InterfaceIP{Name: "wlan0"}, localIPFor("iface:wlan0"))
	assert.Equal(t, transport.StaticIP("10.0.0.7"), localIPFor("10.0.0.7"))
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "notes.txt", ".pollhttp.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.yaml"), []byte("x"), 0644))

	files, err := collectFiles([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "sub", "c.yaml"),
	}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestBuildTargets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TOKEN=s3cret\n"), 0644))
	path := filepath.Join(dir, "load.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: .env
variables:
  base: http://h
requests:
  - name: list
    url: "{{base}}/items"
    weight: 3
    auth: {bearer: "{{TOKEN}}"}
  - name: off
    url: "{{base}}/off"
    skip: true
`), 0644))

	f, err := batch.Load(path)
	require.NoError(t, err)

	targets, err := buildTargets(f)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "list", targets[0].Name)
	assert.Equal(t, 3, targets[0].Weight)
	assert.Equal(t, "http://h/items", targets[0].Request.URL)
	assert.Equal(t, "Bearer s3cret", targets[0].Request.Header("Authorization"))
}

func TestTransportOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Len(t, transportOptions(cfg), 3)

	cfg.TLSPorts = []uint16{443, 8443}
	assert.Len(t, transportOptions(cfg), 4)
}

func TestExitError(t *testing.T) {
	cause := errors.New("2 requests failed")
	err := fmt.Errorf("run: %w", withExitCode(ExitTestFailure, cause))

	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ExitTestFailure, ee.code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "2 requests failed", ee.Error())

	assert.Equal(t, "exit status", withExitCode(ExitNetworkError, nil).Error())
}

// runSend executes the send command through the root command and returns
// its exit code and stdout
func runSend(t *testing.T, args ...string) (int, string) {
	t.Helper()
	t.Cleanup(func() {
		sendAssertFlags, sendOutputFlag = nil, "console"
		localIPFlag, noColorFlag = "", false
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"send", "--local-ip", "127.0.0.1", "--no-color"}, args...))

	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess, out.String()
	}
	var ee *exitError
	require.ErrorAs(t, err, &ee, "stderr: %s", errOut.String())
	return ee.code, out.String()
}

func TestSendCommand_ExitCodes(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path == "/missing" {
			nethttp.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	t.Cleanup(srv.Close)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "success", args: []string{"GET", srv.URL + "/health"}, want: ExitSuccess},
		{name: "not found", args: []string{"GET", srv.URL + "/missing"}, want: ExitTestFailure},
		{name: "assertion accepts 404", args: []string{"GET", srv.URL + "/missing", "-a", "status == 404"}, want: ExitSuccess},
		{name: "assertion fails on 200", args: []string{"GET", srv.URL + "/health", "-a", "body.ok == false"}, want: ExitTestFailure},
		{name: "invalid url", args: []string{"GET", "not-a-url"}, want: ExitTestFailure},
		{name: "bad assertion", args: []string{"GET", srv.URL, "-a", "status"}, want: ExitUsageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := runSend(t, tt.args...)
			assert.Equal(t, tt.want, code, out)
		})
	}
}

func TestSendCommand_PrintsResponse(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	code, out := runSend(t, "GET", srv.URL+"/missing")
	assert.Equal(t, ExitTestFailure, code)
	assert.Contains(t, out, "404")
	assert.Contains(t, out, "/missing")
}
