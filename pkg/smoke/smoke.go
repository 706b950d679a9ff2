// Package smoke exercises a deployed mock API with and without its API key.
package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/observability"
	"github.com/theory-cloud/apigwmock/pkg/sanitization"
)

const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderRequestID = "X-Request-Id"

	DefaultPath    = "crews"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 64 * 1024
)

// Target is the deployed endpoint under test.
type Target struct {
	BaseURL string
	Path    string
	APIKey  string
}

// Call is the outcome of a single request.
type Call struct {
	Name       string
	URL        string
	RequestID  string
	WithKey    bool
	WantStatus int
	Status     int
	Duration   time.Duration
	Body       map[string]any
	Err        string
}

// Passed reports whether the call met its expectation.
func (p Call) Passed() bool { return p.Err == "" }

// Report collects every call of a run.
type Report struct {
	Target string
	Calls  []Call
}

func (r Report) Passed() bool {
	for _, p := range r.Calls {
		if !p.Passed() {
			return false
		}
	}
	return len(r.Calls) > 0
}

// Failures returns the failed calls.
func (r Report) Failures() []Call {
	var out []Call
	for _, p := range r.Calls {
		if !p.Passed() {
			out = append(out, p)
		}
	}
	return out
}

// Checker runs smoke calls.
type Checker struct {
	HTTPClient *http.Client
	IDs        apigwmock.IDGenerator
	Hooks      observability.Hooks
}

func NewChecker(hooks observability.Hooks) *Checker {
	return &Checker{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		IDs:        apigwmock.ULIDGenerator{},
		Hooks:      hooks,
	}
}

// Run issues an authorized GET expecting the mock body, then an unauthorized
// GET expecting 403. The returned error is smoke.failed when any call fails.
func (c *Checker) Run(ctx context.Context, target Target) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	url, err := resolve(target)
	if err != nil {
		return Report{}, err
	}
	if strings.TrimSpace(target.APIKey) == "" {
		return Report{}, apigwmock.NewError(apigwmock.ErrorCodeOutputsMissing, "api key value is empty")
	}

	report := Report{Target: url}

	authorized := c.call(ctx, "authorized", url, target.APIKey, http.StatusOK)
	if authorized.Err == "" {
		authorized.Err = checkBody(authorized.Body)
	}
	report.Calls = append(report.Calls, authorized)
	c.emit(authorized)

	unauthorized := c.call(ctx, "missing-key", url, "", http.StatusForbidden)
	report.Calls = append(report.Calls, unauthorized)
	c.emit(unauthorized)

	if failures := report.Failures(); len(failures) > 0 {
		msgs := make([]string, 0, len(failures))
		for _, f := range failures {
			msgs = append(msgs, f.Name+": "+f.Err)
		}
		return report, apigwmock.NewError(apigwmock.ErrorCodeSmokeFailed, strings.Join(msgs, "; "))
	}
	return report, nil
}

func resolve(target Target) (string, error) {
	base := strings.TrimSpace(target.BaseURL)
	if base == "" {
		return "", apigwmock.NewError(apigwmock.ErrorCodeOutputsMissing, "api url is empty")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return "", apigwmock.Errorf(apigwmock.ErrorCodeConfigInvalid, "api url %q is not absolute", base)
	}
	path := strings.Trim(strings.TrimSpace(target.Path), "/")
	if path == "" {
		path = DefaultPath
	}
	return strings.TrimRight(base, "/") + "/" + path, nil
}

func (c *Checker) call(ctx context.Context, name, url, apiKey string, want int) Call {
	p := Call{Name: name, URL: url, WithKey: apiKey != "", WantStatus: want}
	if c.IDs != nil {
		p.RequestID = c.IDs.NewID()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.Err = err.Error()
		return p
	}
	req.Header.Set("Accept", "application/json")
	if p.RequestID != "" {
		req.Header.Set(HeaderRequestID, p.RequestID)
	}
	if apiKey != "" {
		req.Header.Set(HeaderAPIKey, apiKey)
	}

	c.Hooks.Emit(observability.EventRecord{
		Level:     "debug",
		Event:     "smoke.request",
		RequestID: p.RequestID,
		Fields: map[string]any{
			"call":    name,
			"url":     url,
			"headers": sanitization.SanitizeHeaders(req.Header),
		},
	})

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	p.Duration = time.Since(start)
	if err != nil {
		p.Err = err.Error()
		return p
	}
	defer resp.Body.Close()

	p.Status = resp.StatusCode
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		p.Err = fmt.Sprintf("read body: %v", err)
		return p
	}
	if len(raw) > 0 {
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err == nil {
			p.Body = body
		}
	}

	if p.Status != want {
		p.Err = fmt.Sprintf("status %d, want %d", p.Status, want)
	}
	return p
}

func checkBody(body map[string]any) string {
	if body == nil {
		return "response body is not a JSON object"
	}
	for _, key := range []string{"message", "timestamp", "status"} {
		if _, ok := body[key]; !ok {
			return fmt.Sprintf("response body missing %q", key)
		}
	}
	if status, _ := body["status"].(string); status != "success" {
		return fmt.Sprintf("response status %v, want \"success\"", body["status"])
	}
	return ""
}

func (c *Checker) emit(p Call) {
	level := "info"
	var err error
	if !p.Passed() {
		level = "error"
		err = apigwmock.NewError(apigwmock.ErrorCodeSmokeFailed, p.Err)
	}
	c.Hooks.Emit(observability.EventRecord{
		Level:     level,
		Event:     "smoke.call",
		RequestID: p.RequestID,
		Fields: map[string]any{
			"call":        p.Name,
			"status":      p.Status,
			"want_status": p.WantStatus,
			"with_key":    p.WithKey,
			"duration_ms": p.Duration.Milliseconds(),
		},
		Err: err,
	})
}
