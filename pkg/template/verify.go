package template

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/config"
)

// CloudFormation resource types declared by the mock API stack.
const (
	TypeRestAPI      = "AWS::ApiGateway::RestApi"
	TypeResource     = "AWS::ApiGateway::Resource"
	TypeMethod       = "AWS::ApiGateway::Method"
	TypeDeployment   = "AWS::ApiGateway::Deployment"
	TypeStage        = "AWS::ApiGateway::Stage"
	TypeAPIKey       = "AWS::ApiGateway::ApiKey"
	TypeUsagePlan    = "AWS::ApiGateway::UsagePlan"
	TypeUsagePlanKey = "AWS::ApiGateway::UsagePlanKey"
)

type checker struct {
	tpl      *Template
	problems []string
}

func (c *checker) failf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

// single returns the logical id of the only resource of typ, or "" after
// recording a problem.
func (c *checker) single(typ string) string {
	ids := c.tpl.ResourcesOfType(typ)
	if len(ids) != 1 {
		c.failf("expected exactly one %s, found %d", typ, len(ids))
		return ""
	}
	return ids[0]
}

func (c *checker) expect(id, path string, got, want any) {
	if !sameValue(got, want) {
		c.failf("%s %s: got %v, want %v", id, path, got, want)
	}
}

// Verify checks that tpl declares exactly what plan describes and reports every violation.
func Verify(tpl *Template, plan *config.Plan) error {
	if tpl == nil {
		return apigwmock.NewError(apigwmock.ErrorCodeTemplateInvalid, "template is nil")
	}
	if plan == nil {
		plan = config.Default()
	}
	linked, err := plan.Link()
	if err != nil {
		return err
	}

	c := &checker{tpl: tpl}
	apiID := c.checkRestAPI(linked)
	stageID := c.checkStage(linked)
	resourceID := c.checkResource(linked)
	c.checkMethod(linked, resourceID)
	keyID := c.checkAPIKey(linked)
	c.checkUsagePlan(linked, apiID, stageID, keyID)
	c.checkOutputs(linked)
	c.single(TypeDeployment)

	if len(c.problems) > 0 {
		return apigwmock.NewError(apigwmock.ErrorCodeTemplateInvalid, strings.Join(c.problems, "; "))
	}
	return nil
}

func (c *checker) checkRestAPI(linked *config.Linked) string {
	id := c.single(TypeRestAPI)
	if id == "" {
		return ""
	}
	props := c.tpl.Resources[id].Properties
	c.expect(id, "Name", props["Name"], linked.RestAPI.Name)
	c.expect(id, "Description", props["Description"], linked.RestAPI.Description)
	c.expect(id, "EndpointConfiguration.Types", lookup(props, "EndpointConfiguration", "Types"), []any{string(linked.RestAPI.EndpointType)})
	return id
}

func (c *checker) checkStage(linked *config.Linked) string {
	id := c.single(TypeStage)
	if id == "" {
		return ""
	}
	c.expect(id, "StageName", c.tpl.Resources[id].Properties["StageName"], linked.Stage.Name())
	return id
}

func (c *checker) checkResource(linked *config.Linked) string {
	id := c.single(TypeResource)
	if id == "" {
		return ""
	}
	c.expect(id, "PathPart", c.tpl.Resources[id].Properties["PathPart"], linked.Method.PathPart)
	return id
}

func (c *checker) checkMethod(linked *config.Linked, resourceID string) {
	id := c.single(TypeMethod)
	if id == "" {
		return
	}
	props := c.tpl.Resources[id].Properties
	mc := linked.Method
	ic := linked.Integration

	c.expect(id, "HttpMethod", props["HttpMethod"], mc.HTTPMethod)
	c.expect(id, "ApiKeyRequired", props["ApiKeyRequired"], mc.APIKeyRequired)
	if resourceID != "" {
		c.expect(id, "ResourceId", props["ResourceId"], map[string]any{"Ref": resourceID})
	}

	c.expect(id, "Integration.Type", lookup(props, "Integration", "Type"), "MOCK")
	c.expect(id, "Integration.PassthroughBehavior", lookup(props, "Integration", "PassthroughBehavior"), string(ic.PassthroughBehavior))
	requestTemplates := lookup(props, "Integration", "RequestTemplates")
	if requestTemplates == nil {
		requestTemplates = map[string]any{}
	}
	c.expect(id, "Integration.RequestTemplates", requestTemplates, stringMap(ic.RequestTemplates))

	responses, _ := lookup(props, "Integration", "IntegrationResponses").([]any)
	got := map[string]any{}
	for _, r := range responses {
		rm, _ := r.(map[string]any)
		status, _ := rm["StatusCode"].(string)
		tpl := lookup(rm, "ResponseTemplates", config.ContentTypeJSON)
		got[status] = tpl
		pattern, _ := rm["SelectionPattern"].(string)
		if want := ic.SelectionPattern(status); pattern != want {
			c.failf("%s integration response %s: selection pattern %q, want %q", id, status, pattern, want)
		}
		if s, ok := tpl.(string); ok {
			if err := config.CheckJSONTemplate(s); err != nil {
				c.failf("%s integration response %s: %v", id, status, err)
			}
		}
	}
	c.expect(id, "Integration.IntegrationResponses", got, stringMap(ic.ResponseTemplates))

	methodResponses, _ := props["MethodResponses"].([]any)
	models := map[string]any{}
	for _, r := range methodResponses {
		rm, _ := r.(map[string]any)
		status, _ := rm["StatusCode"].(string)
		models[status] = lookup(rm, "ResponseModels", config.ContentTypeJSON)
	}
	want := map[string]any{}
	for status, ref := range mc.ResponseModels {
		want[status] = string(ref)
	}
	c.expect(id, "MethodResponses", models, want)
}

func (c *checker) checkAPIKey(linked *config.Linked) string {
	id := c.single(TypeAPIKey)
	if id == "" {
		return ""
	}
	props := c.tpl.Resources[id].Properties
	c.expect(id, "Name", props["Name"], linked.APIKey.Name)
	c.expect(id, "Description", props["Description"], linked.APIKey.Description)
	c.expect(id, "Enabled", props["Enabled"], linked.APIKey.Enabled)
	return id
}

func (c *checker) checkUsagePlan(linked *config.Linked, apiID, stageID, keyID string) {
	id := c.single(TypeUsagePlan)
	if id == "" {
		return
	}
	props := c.tpl.Resources[id].Properties
	uc := linked.UsagePlan

	c.expect(id, "UsagePlanName", props["UsagePlanName"], uc.Name)
	c.expect(id, "Description", props["Description"], uc.Description)
	c.expect(id, "Throttle.RateLimit", lookup(props, "Throttle", "RateLimit"), uc.Throttle.RateLimit)
	c.expect(id, "Throttle.BurstLimit", lookup(props, "Throttle", "BurstLimit"), float64(uc.Throttle.BurstLimit))
	c.expect(id, "Quota.Limit", lookup(props, "Quota", "Limit"), float64(uc.Quota.Limit))
	c.expect(id, "Quota.Period", lookup(props, "Quota", "Period"), string(uc.Quota.Period))

	stages, _ := props["ApiStages"].([]any)
	if len(stages) != 1 {
		c.failf("%s ApiStages: expected 1 stage association, found %d", id, len(stages))
	} else if apiID != "" && stageID != "" {
		st, _ := stages[0].(map[string]any)
		c.expect(id, "ApiStages[0].ApiId", st["ApiId"], map[string]any{"Ref": apiID})
		c.expect(id, "ApiStages[0].Stage", st["Stage"], map[string]any{"Ref": stageID})
	}

	keyLinkID := c.single(TypeUsagePlanKey)
	if keyLinkID == "" || keyID == "" {
		return
	}
	kp := c.tpl.Resources[keyLinkID].Properties
	c.expect(keyLinkID, "KeyType", kp["KeyType"], "API_KEY")
	c.expect(keyLinkID, "KeyId", kp["KeyId"], map[string]any{"Ref": keyID})
	c.expect(keyLinkID, "UsagePlanId", kp["UsagePlanId"], map[string]any{"Ref": id})
}

func (c *checker) checkOutputs(linked *config.Linked) {
	for _, out := range linked.Outputs {
		got, ok := c.tpl.Outputs[out.Name]
		if !ok {
			c.failf("output %s is missing", out.Name)
			continue
		}
		if isEmpty(got.Value) {
			c.failf("output %s has an empty value", out.Name)
		}
		c.expect("output "+out.Name, "Description", got.Description, out.Description)
	}
}

func lookup(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[key]
	}
	return cur
}

func stringMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func isEmpty(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case map[string]any:
		return len(typed) == 0
	}
	return false
}

// sameValue compares decoded JSON values, treating every numeric type as float64.
func sameValue(got, want any) bool {
	if gf, ok := toFloat(got); ok {
		wf, ok := toFloat(want)
		return ok && gf == wf
	}
	return reflect.DeepEqual(got, want)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
