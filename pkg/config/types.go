// Package config holds the declarative records that describe the mock API stack.
//
// A Plan is a set of inert configuration records. Plan.Link resolves the
// string references between records into typed handles; the stack definition
// only accepts a linked plan.
package config

import "strings"

// EndpointType selects how the REST API is exposed.
type EndpointType string

const (
	EndpointRegional EndpointType = "REGIONAL"
	EndpointEdge     EndpointType = "EDGE"
	EndpointPrivate  EndpointType = "PRIVATE"
)

// PassthroughBehavior controls how unmapped request bodies reach the integration.
type PassthroughBehavior string

const (
	PassthroughWhenNoMatch     PassthroughBehavior = "WHEN_NO_MATCH"
	PassthroughNever           PassthroughBehavior = "NEVER"
	PassthroughWhenNoTemplates PassthroughBehavior = "WHEN_NO_TEMPLATES"
)

// QuotaPeriod is the window a usage plan quota applies to.
type QuotaPeriod string

const (
	PeriodDay   QuotaPeriod = "DAY"
	PeriodWeek  QuotaPeriod = "WEEK"
	PeriodMonth QuotaPeriod = "MONTH"
)

// ModelRef names one of the built-in API Gateway response models.
type ModelRef string

const (
	ModelEmpty ModelRef = "Empty"
	ModelError ModelRef = "Error"
)

// ContentTypeJSON is the content type every default template is keyed by.
const ContentTypeJSON = "application/json"

type RestAPIConfig struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	Description    string       `yaml:"description"`
	EndpointType   EndpointType `yaml:"endpointType"`
	StageName      string       `yaml:"stageName"`
	CloudWatchRole bool         `yaml:"cloudWatchRole"`
}

type MockIntegrationConfig struct {
	ID string `yaml:"id"`
	// ResponseTemplates maps a status code to its application/json response template.
	ResponseTemplates   map[string]string   `yaml:"responseTemplates"`
	PassthroughBehavior PassthroughBehavior `yaml:"passthroughBehavior"`
	// RequestTemplates maps a content type to its request template.
	RequestTemplates map[string]string `yaml:"requestTemplates"`
}

// DefaultResponseStatus is the integration response that carries no selection
// pattern: the lowest 2xx status, else the lowest status. It is "" when there
// are no responses.
func (ic MockIntegrationConfig) DefaultResponseStatus() string {
	statuses := sortedKeys(ic.ResponseTemplates)
	for _, status := range statuses {
		if strings.HasPrefix(status, "2") {
			return status
		}
	}
	if len(statuses) == 0 {
		return ""
	}
	return statuses[0]
}

// SelectionPattern is the pattern deployed on the response for status: the
// status itself, or "" for the default response.
func (ic MockIntegrationConfig) SelectionPattern(status string) string {
	if status == ic.DefaultResponseStatus() {
		return ""
	}
	return status
}

// SelectResponse picks the integration response for the status code the mock
// integration returned. A response matches when its selection pattern equals
// the code; otherwise the default response answers.
func (ic MockIntegrationConfig) SelectResponse(statusCode string) (status, template string, ok bool) {
	if tpl, found := ic.ResponseTemplates[statusCode]; found && ic.SelectionPattern(statusCode) != "" {
		return statusCode, tpl, true
	}
	def := ic.DefaultResponseStatus()
	if def == "" {
		return "", "", false
	}
	return def, ic.ResponseTemplates[def], true
}

type ResourceMethodConfig struct {
	PathPart       string              `yaml:"pathPart"`
	HTTPMethod     string              `yaml:"httpMethod"`
	Integration    string              `yaml:"integration"`
	APIKeyRequired bool                `yaml:"apiKeyRequired"`
	ResponseModels map[string]ModelRef `yaml:"responseModels"`
}

type APIKeyConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Enabled     bool   `yaml:"enabled"`
}

type ThrottleConfig struct {
	RateLimit  float64 `yaml:"rateLimit"`
	BurstLimit int     `yaml:"burstLimit"`
}

type QuotaConfig struct {
	Limit  int         `yaml:"limit"`
	Period QuotaPeriod `yaml:"period"`
}

type UsagePlanConfig struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Throttle    ThrottleConfig `yaml:"throttle"`
	Quota       QuotaConfig    `yaml:"quota"`
	// APIKey references an APIKeyConfig by ID.
	APIKey string `yaml:"apiKey"`
	// Stage references the REST API deployment stage by name.
	Stage string `yaml:"stage"`
}

// OutputConfig is a stack output. Value has the form "<EntityID>.<Attribute>".
type OutputConfig struct {
	Name        string `yaml:"name"`
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
}

// Plan is the full declaration, in declaration order.
type Plan struct {
	RestAPI     RestAPIConfig         `yaml:"restApi"`
	Integration MockIntegrationConfig `yaml:"integration"`
	Method      ResourceMethodConfig  `yaml:"method"`
	APIKey      APIKeyConfig          `yaml:"apiKey"`
	UsagePlan   UsagePlanConfig       `yaml:"usagePlan"`
	Outputs     []OutputConfig        `yaml:"outputs"`
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := *p
	out.Integration.ResponseTemplates = cloneStrings(p.Integration.ResponseTemplates)
	out.Integration.RequestTemplates = cloneStrings(p.Integration.RequestTemplates)
	if p.Method.ResponseModels != nil {
		out.Method.ResponseModels = make(map[string]ModelRef, len(p.Method.ResponseModels))
		for k, v := range p.Method.ResponseModels {
			out.Method.ResponseModels[k] = v
		}
	}
	out.Outputs = append([]OutputConfig(nil), p.Outputs...)
	return &out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
