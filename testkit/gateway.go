package testkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	"github.com/theory-cloud/apigwmock/pkg/config"
	"github.com/theory-cloud/apigwmock/pkg/limited"
)

// RequestTimeLayout is the $context.requestTime format.
const RequestTimeLayout = "02/Jan/2006:15:04:05 -0700"

// Gateway answers requests for a plan the way a deployed stage does: the
// stage, resource path and verb must route to the method, the API key header
// is enforced when the method requires one, the usage plan throttle and quota
// are metered per key, and the body comes from the integration response whose
// selection pattern matches the mock status code, else the default response.
type Gateway struct {
	plan    *config.Plan
	key     string
	clock   *ManualClock
	ids     *ManualIDGenerator
	limiter *limited.UsagePlanLimiter
}

// Gateway returns a local gateway for plan that accepts apiKey. It panics
// when the usage plan limits are invalid.
func (e *Env) Gateway(plan *config.Plan, apiKey string) *Gateway {
	if plan == nil {
		plan = config.Default()
	}
	limiter, err := limited.NewUsagePlanLimiter(plan.UsagePlan, e.Clock)
	if err != nil {
		panic(err)
	}
	return &Gateway{
		plan:    plan.Clone(),
		key:     apiKey,
		clock:   e.Clock,
		ids:     e.IDs,
		limiter: limiter,
	}
}

// Serve starts an httptest server for the gateway. The caller closes it.
func (g *Gateway) Serve() *httptest.Server {
	return httptest.NewServer(g)
}

// StageURL is the invoke URL of the stage on srv, ending with a slash.
func (g *Gateway) StageURL(srv *httptest.Server) string {
	return srv.URL + "/" + g.plan.RestAPI.StageName + "/"
}

// Calls returns how many calls were counted against apiKey's quota in the
// current period.
func (g *Gateway) Calls(apiKey string) int {
	return g.limiter.GetUsage(g.limitKey(apiKey)).Quota.Count
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", config.ContentTypeJSON)
	w.Header().Set("X-Amzn-Requestid", g.ids.NewID())

	if !g.routes(r.Method, r.URL.Path) {
		writeMessage(w, http.StatusForbidden, "Missing Authentication Token")
		return
	}

	key := r.Header.Get("X-Api-Key")
	if g.plan.Method.APIKeyRequired {
		if key == "" || key != g.key || !g.plan.APIKey.Enabled {
			writeMessage(w, http.StatusForbidden, "Forbidden")
			return
		}
		decision := g.limiter.CheckAndIncrement(g.limitKey(key))
		switch decision.Reason {
		case limited.ReasonThrottled:
			writeMessage(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		case limited.ReasonQuotaExceeded:
			writeMessage(w, http.StatusTooManyRequests, "Limit Exceeded")
			return
		}
	}

	code, err := g.integrationStatus(r.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, errUnsupportedMediaType):
		writeMessage(w, http.StatusUnsupportedMediaType, "Unsupported Media Type")
		return
	case err != nil:
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	status, body, ok := g.plan.Integration.SelectResponse(strconv.Itoa(code))
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	statusCode, err := strconv.Atoi(status)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	rendered := config.RenderMappingTemplate(body, map[string]string{
		"context.requestTime":  g.clock.Now().Format(RequestTimeLayout),
		"context.stage":        g.plan.RestAPI.StageName,
		"context.resourcePath": "/" + g.plan.Method.PathPart,
		"context.httpMethod":   r.Method,
	})
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(rendered))
}

// routes reports whether method and path reach the plan's method. ANY accepts
// every verb; a "{name}" path part matches one segment and "{name+}" matches
// the rest of the path.
func (g *Gateway) routes(method, path string) bool {
	verb := g.plan.Method.HTTPMethod
	if verb != "ANY" && !strings.EqualFold(method, verb) {
		return false
	}

	rest, ok := strings.CutPrefix(path, "/"+g.plan.RestAPI.StageName+"/")
	if !ok {
		return false
	}
	rest = strings.TrimRight(rest, "/")

	part := g.plan.Method.PathPart
	switch {
	case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "+}"):
		return rest != ""
	case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
		return rest != "" && !strings.Contains(rest, "/")
	default:
		return rest == part
	}
}

func (g *Gateway) limitKey(apiKey string) limited.RateLimitKey {
	return limited.RateLimitKey{Identifier: apiKey, Resource: g.plan.RestAPI.StageName}
}

var (
	errUnsupportedMediaType = errors.New("no request template for content type")
	errBadRequestTemplate   = errors.New("request template has no usable statusCode")
)

// integrationStatus is the status code the mock integration returns: the
// statusCode of the rendered request template for contentType, or 200 when
// the passthrough behavior lets an unmatched request through.
func (g *Gateway) integrationStatus(contentType string) (int, error) {
	templates := g.plan.Integration.RequestTemplates
	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if mediaType == "" {
		mediaType = config.ContentTypeJSON
	}

	tpl, ok := templates[mediaType]
	if !ok {
		switch g.plan.Integration.PassthroughBehavior {
		case config.PassthroughNever:
			return 0, errUnsupportedMediaType
		case config.PassthroughWhenNoTemplates:
			if len(templates) > 0 {
				return 0, errUnsupportedMediaType
			}
		}
		return http.StatusOK, nil
	}

	var selector struct {
		StatusCode int `json:"statusCode"`
	}
	if err := json.Unmarshal([]byte(config.RenderMappingTemplate(tpl, nil)), &selector); err != nil || selector.StatusCode == 0 {
		return 0, errBadRequestTemplate
	}
	return selector.StatusCode, nil
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

var _ http.Handler = (*Gateway)(nil)

