package smoke

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/observability"
	"github.com/theory-cloud/apigwmock/testkit"
)

const testKey = "abcdefghijklmnopqrstuvwxyz0123456789ABCD"

func mockAPI(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/prod/crews" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get(HeaderAPIKey) != testKey {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Forbidden"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type recorder struct {
	mu      sync.Mutex
	records []observability.EventRecord
}

func (r *recorder) hooks() observability.Hooks {
	return observability.Hooks{Log: func(rec observability.EventRecord) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.records = append(r.records, rec)
	}}
}

func newChecker(rec *recorder) *Checker {
	c := NewChecker(rec.hooks())
	c.IDs = apigwmock.NewSequenceIDGenerator("req-1", "req-2")
	return c
}

func TestRun_Passes(t *testing.T) {
	srv := mockAPI(t, `{"message":"Hello from Mock API!","timestamp":"14/Oct/2026:10:00:00 +0000","status":"success"}`)
	rec := &recorder{}

	report, err := newChecker(rec).Run(context.Background(), Target{BaseURL: srv.URL + "/prod/", APIKey: testKey})
	require.NoError(t, err)
	require.True(t, report.Passed())
	require.Equal(t, srv.URL+"/prod/crews", report.Target)
	require.Len(t, report.Calls, 2)

	require.Equal(t, "authorized", report.Calls[0].Name)
	require.Equal(t, http.StatusOK, report.Calls[0].Status)
	require.Equal(t, "req-1", report.Calls[0].RequestID)
	require.Equal(t, "success", report.Calls[0].Body["status"])

	require.Equal(t, "missing-key", report.Calls[1].Name)
	require.Equal(t, http.StatusForbidden, report.Calls[1].Status)
	require.False(t, report.Calls[1].WithKey)
}

func TestRun_NeverLogsKey(t *testing.T) {
	srv := mockAPI(t, `{"message":"m","timestamp":"t","status":"success"}`)
	rec := &recorder{}

	_, err := newChecker(rec).Run(context.Background(), Target{BaseURL: srv.URL + "/prod", APIKey: testKey})
	require.NoError(t, err)

	require.NotEmpty(t, rec.records)
	for _, r := range rec.records {
		for _, v := range r.Fields {
			if headers, ok := v.(map[string]string); ok {
				for _, hv := range headers {
					require.NotContains(t, hv, testKey)
				}
			}
		}
	}
}

func TestRun_FailsOnWrongBody(t *testing.T) {
	srv := mockAPI(t, `{"message":"m","timestamp":"t","status":"error"}`)

	report, err := newChecker(&recorder{}).Run(context.Background(), Target{BaseURL: srv.URL + "/prod", APIKey: testKey})
	require.Error(t, err)
	require.Equal(t, apigwmock.ErrorCodeSmokeFailed, apigwmock.CodeOf(err))
	require.False(t, report.Passed())
	require.Len(t, report.Failures(), 1)
	require.Contains(t, report.Failures()[0].Err, "success")
}

func TestRun_FailsOnMissingField(t *testing.T) {
	srv := mockAPI(t, `{"message":"m","status":"success"}`)

	_, err := newChecker(&recorder{}).Run(context.Background(), Target{BaseURL: srv.URL + "/prod", APIKey: testKey})
	require.Error(t, err)
	require.Contains(t, err.Error(), "timestamp")
}

func TestRun_FailsWhenKeyNotEnforced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"m","timestamp":"t","status":"success"}`))
	}))
	t.Cleanup(srv.Close)
	rec := &recorder{}

	report, err := newChecker(rec).Run(context.Background(), Target{BaseURL: srv.URL, APIKey: testKey})
	require.Error(t, err)
	require.True(t, report.Calls[0].Passed())
	require.False(t, report.Calls[1].Passed())
	require.Contains(t, err.Error(), "missing-key: status 200, want 403")

	var sawError bool
	for _, r := range rec.records {
		if r.Event == "smoke.call" && r.Level == "error" {
			sawError = true
		}
	}
	require.True(t, sawError)
}

func TestRun_ValidatesTarget(t *testing.T) {
	c := newChecker(&recorder{})

	_, err := c.Run(context.Background(), Target{APIKey: testKey})
	require.Equal(t, apigwmock.ErrorCodeOutputsMissing, apigwmock.CodeOf(err))

	_, err = c.Run(context.Background(), Target{BaseURL: "example.com/prod", APIKey: testKey})
	require.Equal(t, apigwmock.ErrorCodeConfigInvalid, apigwmock.CodeOf(err))

	_, err = c.Run(context.Background(), Target{BaseURL: "https://example.com/prod", APIKey: " "})
	require.Equal(t, apigwmock.ErrorCodeOutputsMissing, apigwmock.CodeOf(err))
}

func TestResolve(t *testing.T) {
	url, err := resolve(Target{BaseURL: "https://abc.execute-api.us-east-1.amazonaws.com/prod/", Path: "/crews/"})
	require.NoError(t, err)
	require.Equal(t, "https://abc.execute-api.us-east-1.amazonaws.com/prod/crews", url)

	url, err = resolve(Target{BaseURL: "http://localhost:4566/restapis/x/prod/_user_request_"})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(url, "/_user_request_/crews"))
}

func TestRun_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	report, err := newChecker(&recorder{}).Run(context.Background(), Target{BaseURL: base, APIKey: testKey})
	require.Error(t, err)
	require.Len(t, report.Failures(), 2)
}

func TestRun_AgainstLocalGateway(t *testing.T) {
	env := testkit.New()
	gw := env.Gateway(nil, testKey)
	srv := gw.Serve()
	t.Cleanup(srv.Close)

	report, err := newChecker(&recorder{}).Run(context.Background(), Target{BaseURL: gw.StageURL(srv), APIKey: testKey})
	require.NoError(t, err)
	require.True(t, report.Passed())
	require.Equal(t, 1, gw.Calls(testKey))
}
