package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/naming"
)

var (
	idPattern       = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
	stagePattern    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	pathPartPattern = regexp.MustCompile(`^([A-Za-z0-9._-]+|\{[A-Za-z0-9_]+\+?\})$`)
	statusPattern   = regexp.MustCompile(`^[1-5][0-9][0-9]$`)
	templateVar     = regexp.MustCompile(`\$[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)*(\([^)]*\))?`)
)

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true, "ANY": true,
}

// Validate checks field values. Reference resolution happens in Link.
func (p *Plan) Validate() error {
	if p == nil {
		return apigwmock.NewError(apigwmock.ErrorCodeConfigInvalid, "plan is nil")
	}

	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	checkID := func(field, id string) {
		if idPattern.MatchString(id) {
			return
		}
		if hint := naming.LogicalID(id); hint != "" && idPattern.MatchString(hint) {
			addf("%s: %q must start with a letter and contain only letters and digits (try %q)", field, id, hint)
			return
		}
		addf("%s: %q must start with a letter and contain only letters and digits", field, id)
	}

	api := p.RestAPI
	checkID("restApi.id", api.ID)
	if strings.TrimSpace(api.Name) == "" {
		addf("restApi.name is empty")
	}
	switch api.EndpointType {
	case EndpointRegional, EndpointEdge, EndpointPrivate:
	default:
		addf("restApi.endpointType: unsupported value %q", api.EndpointType)
	}
	if !stagePattern.MatchString(api.StageName) {
		addf("restApi.stageName: %q must contain only letters, digits, hyphens and underscores", api.StageName)
	}

	integ := p.Integration
	checkID("integration.id", integ.ID)
	switch integ.PassthroughBehavior {
	case PassthroughWhenNoMatch, PassthroughNever, PassthroughWhenNoTemplates:
	default:
		addf("integration.passthroughBehavior: unsupported value %q", integ.PassthroughBehavior)
	}
	if len(integ.ResponseTemplates) == 0 {
		addf("integration.responseTemplates is empty")
	}
	for _, status := range sortedKeys(integ.ResponseTemplates) {
		if !statusPattern.MatchString(status) {
			addf("integration.responseTemplates: %q is not an HTTP status code", status)
			continue
		}
		if err := CheckJSONTemplate(integ.ResponseTemplates[status]); err != nil {
			addf("integration.responseTemplates[%s]: %v", status, err)
		}
		if _, ok := p.Method.ResponseModels[status]; !ok {
			addf("integration.responseTemplates[%s]: method.responseModels has no entry for status %s", status, status)
		}
	}
	for _, contentType := range sortedKeys(integ.RequestTemplates) {
		if strings.TrimSpace(contentType) == "" {
			addf("integration.requestTemplates: content type is empty")
		}
	}

	m := p.Method
	if !pathPartPattern.MatchString(m.PathPart) {
		addf("method.pathPart: %q is not a valid path segment", m.PathPart)
	}
	if !httpMethods[m.HTTPMethod] {
		addf("method.httpMethod: unsupported verb %q", m.HTTPMethod)
	}
	for _, status := range sortedKeys(m.ResponseModels) {
		if !statusPattern.MatchString(status) {
			addf("method.responseModels: %q is not an HTTP status code", status)
		}
		switch m.ResponseModels[status] {
		case ModelEmpty, ModelError:
		default:
			addf("method.responseModels[%s]: unsupported model %q", status, m.ResponseModels[status])
		}
	}

	checkID("apiKey.id", p.APIKey.ID)
	if strings.TrimSpace(p.APIKey.Name) == "" {
		addf("apiKey.name is empty")
	}

	plan := p.UsagePlan
	checkID("usagePlan.id", plan.ID)
	if strings.TrimSpace(plan.Name) == "" {
		addf("usagePlan.name is empty")
	}
	if plan.Throttle.RateLimit < 0 {
		addf("usagePlan.throttle.rateLimit must not be negative")
	}
	if plan.Throttle.BurstLimit < 0 {
		addf("usagePlan.throttle.burstLimit must not be negative")
	}
	if plan.Quota.Limit < 0 {
		addf("usagePlan.quota.limit must not be negative")
	}
	switch plan.Quota.Period {
	case PeriodDay, PeriodWeek, PeriodMonth:
	default:
		addf("usagePlan.quota.period: unsupported value %q", plan.Quota.Period)
	}

	seen := map[string]bool{}
	for i, out := range p.Outputs {
		checkID(fmt.Sprintf("outputs[%d].name", i), out.Name)
		if seen[out.Name] {
			addf("outputs[%d].name: %q is declared twice", i, out.Name)
		}
		seen[out.Name] = true
	}

	if len(problems) > 0 {
		return apigwmock.NewError(apigwmock.ErrorCodeConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// RenderMappingTemplate substitutes $variables in a mapping template. Names
// present in vars are replaced by their value; everything else becomes null.
// Templates with VTL directives are returned unchanged.
func RenderMappingTemplate(tpl string, vars map[string]string) string {
	if hasDirectives(tpl) {
		return tpl
	}
	return templateVar.ReplaceAllStringFunc(tpl, func(match string) string {
		if v, ok := vars[strings.TrimPrefix(match, "$")]; ok {
			return v
		}
		return "null"
	})
}

// CheckJSONTemplate reports whether a mapping template renders to valid JSON.
// Templates that use VTL directives cannot be checked statically and pass.
func CheckJSONTemplate(tpl string) error {
	if strings.TrimSpace(tpl) == "" {
		return fmt.Errorf("template is empty")
	}
	if hasDirectives(tpl) {
		return nil
	}
	if !json.Valid([]byte(RenderMappingTemplate(tpl, nil))) {
		return fmt.Errorf("template does not render to valid JSON")
	}
	return nil
}

func hasDirectives(tpl string) bool {
	for _, d := range []string{"#set", "#if", "#foreach", "#end"} {
		if strings.Contains(tpl, d) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
