package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pollhttp/packages/assertions"
	"github.com/abdul-hamid-achik/pollhttp/packages/http"
	"github.com/abdul-hamid-achik/pollhttp/packages/output"
	"github.com/abdul-hamid-achik/pollhttp/packages/transport"
)

var sendCmd = &cobra.Command{
	Use:   "send <METHOD> <URL>",
	Short: "Send one request and print the response",
	Long: `Send one request and wait, by polling, for its single terminal outcome.
Without assertions a non-2xx response exits 1; with assertions they alone
decide the exit code.

Examples:
  pollhttp send GET http://192.168.1.20/status
  pollhttp send POST http://api.local/items --json '{"name":"lamp"}'
  pollhttp send POST http://api.local/login --form user=ada --form pw=secret
  pollhttp send GET http://api.local/health -a "status == 200" -a "body.ok == true"`,
	Args: cobra.ExactArgs(2),
	RunE: sendCommand,
}

var (
	sendHeaderFlags []string
	sendDataFlag    string
	sendJSONFlag    string
	sendFormFlags   []string
	sendAssertFlags []string
	sendOutputFlag  string
)

func init() {
	sendCmd.Flags().StringArrayVarP(&sendHeaderFlags, "header", "H", nil, `Header line "Key: value" (repeatable)`)
	sendCmd.Flags().StringVarP(&sendDataFlag, "data", "d", "", "Raw request body")
	sendCmd.Flags().StringVar(&sendJSONFlag, "json", "", "JSON request body; sets Content-Type")
	sendCmd.Flags().StringArrayVar(&sendFormFlags, "form", nil, "Form field key=value (repeatable)")
	sendCmd.Flags().StringArrayVarP(&sendAssertFlags, "assert", "a", nil, `Assertion such as "status == 200" (repeatable)`)
	sendCmd.Flags().StringVarP(&sendOutputFlag, "output", "o", "console", "Output format: console, json")
}

// buildSendRequest turns the send flags into an engine request
func buildSendRequest(method, rawURL string) (*http.Request, error) {
	bodies := 0
	for _, set := range []bool{sendDataFlag != "", sendJSONFlag != "", len(sendFormFlags) > 0} {
		if set {
			bodies++
		}
	}
	if bodies > 1 {
		return nil, errors.New("only one of --data, --json and --form may be given")
	}

	req := http.NewRequest(strings.ToUpper(method), rawURL)

	switch {
	case sendJSONFlag != "":
		req.SetTypedBody(http.ContentTypeJSON, sendJSONFlag)
	case len(sendFormFlags) > 0:
		values := url.Values{}
		for _, kv := range sendFormFlags {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid --form %q: want key=value", kv)
			}
			values.Add(k, v)
		}
		req.SetFormBody(values)
	case sendDataFlag != "":
		req.SetTypedBody("text/plain", sendDataFlag)
	}

	for _, h := range sendHeaderFlags {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid header %q: want \"Key: value\"", h)
		}
		req.SetHeader(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return req, nil
}

func sendCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	req, err := buildSendRequest(args[0], args[1])
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	checks := make([]assertions.Assertion, 0, len(sendAssertFlags))
	for _, line := range sendAssertFlags {
		a, err := assertions.Parse(line)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		checks = append(checks, a)
	}

	logger := newLogger(cmd.ErrOrStderr())
	sess, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := sendAndWait(ctx, sess.engine, req, cfg.PollInterval)
	if err != nil {
		return withExitCode(ExitNetworkError, err)
	}

	var results []*assertions.Result
	if len(checks) > 0 {
		results = assertions.EvaluateAll(resp, checks, ".")
	}

	if sendOutputFlag == "json" {
		doc := struct {
			*output.JSONResponse
			Method     string               `json:"method"`
			URL        string               `json:"url"`
			Assertions []*assertions.Result `json:"assertions,omitempty"`
		}{output.NewJSONResponse(resp), resp.Method, resp.URL, results}
		if err := output.WriteJSON(cmd.OutOrStdout(), doc); err != nil {
			return err
		}
	} else {
		console := output.NewConsoleFormatter(
			output.WithWriter(cmd.OutOrStdout()),
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor()),
		)
		console.FormatResponse(resp)
		for _, r := range results {
			mark := "✓"
			if !r.Passed {
				mark = "✗"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s %s %v", mark, r.Subject, r.Operator, r.Expected)
			if !r.Passed && r.Message != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", r.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
	}

	switch {
	case resp.Status == http.StatusNoResponse, resp.Status == http.StatusFailedUnableToConnect:
		return withExitCode(ExitNetworkError, nil)
	case resp.Status != http.StatusCompleted:
		return withExitCode(ExitTestFailure, nil)
	case len(checks) == 0 && !resp.IsSuccess():
		return withExitCode(ExitTestFailure, nil)
	case !assertions.AllPassed(results):
		return withExitCode(ExitTestFailure, nil)
	}
	return nil
}

// sendAndWait issues req and polls every interval until its callback ran.
// Synchronous failures come back as a Response carrying that status.
func sendAndWait(ctx context.Context, engine *http.Engine[*transport.TCP], req *http.Request, interval time.Duration) (http.Response, error) {
	var (
		resp http.Response
		done bool
	)
	status := engine.Do(req, func(r http.Response) {
		resp = r
		done = true
	})
	if status != http.StatusSent {
		return http.Response{Status: status, Method: req.Method, URL: req.URL}, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		engine.Poll()
		if done {
			return resp, nil
		}
		select {
		case <-ctx.Done():
			return http.Response{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
