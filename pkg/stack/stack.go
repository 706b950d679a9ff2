// Package stack declares the mock API CloudFormation stack.
package stack

import (
	"sort"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/config"
)

// MockAPIStackProps configures NewMockAPIStack. A nil Plan means config.Default().
type MockAPIStackProps struct {
	awscdk.StackProps

	Plan *config.Plan
}

// MockAPIStack is the synthesized stack and handles to every construct it declares.
type MockAPIStack struct {
	Stack awscdk.Stack
	*MockAPI
}

// MockAPI holds the constructs declared by DefineMockAPI.
type MockAPI struct {
	Linked *config.Linked

	API         awsapigateway.RestApi
	Integration awsapigateway.MockIntegration
	Resource    awsapigateway.Resource
	Method      awsapigateway.Method
	APIKey      awsapigateway.ApiKey
	UsagePlan   awsapigateway.UsagePlan
	Outputs     map[string]awscdk.CfnOutput
}

// NewMockAPIStack links the plan and declares it as a new stack under scope.
//
// Construction makes no network calls. A plan that fails to link is returned
// as-is; construct-level panics raised by the CDK are reported as synth.failed.
func NewMockAPIStack(scope constructs.Construct, id string, props *MockAPIStackProps) (out *MockAPIStack, err error) {
	if scope == nil {
		return nil, apigwmock.NewError(apigwmock.ErrorCodeConfigInvalid, "stack scope is nil")
	}
	if id == "" {
		return nil, apigwmock.NewError(apigwmock.ErrorCodeConfigInvalid, "stack id is empty")
	}

	var sprops awscdk.StackProps
	plan := config.Default()
	if props != nil {
		sprops = props.StackProps
		if props.Plan != nil {
			plan = props.Plan
		}
	}

	linked, err := plan.Link()
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = apigwmock.FromPanic(apigwmock.ErrorCodeSynthFailed, r)
		}
	}()

	stack := awscdk.NewStack(scope, jsii.String(id), &sprops)
	return &MockAPIStack{Stack: stack, MockAPI: DefineMockAPI(stack, linked)}, nil
}

// DefineMockAPI declares the linked plan under scope in a single pass.
func DefineMockAPI(scope constructs.Construct, linked *config.Linked) *MockAPI {
	m := &MockAPI{Linked: linked, Outputs: map[string]awscdk.CfnOutput{}}

	rc := linked.RestAPI
	m.API = awsapigateway.NewRestApi(scope, jsii.String(rc.ID), &awsapigateway.RestApiProps{
		RestApiName: jsii.String(rc.Name),
		Description: jsii.String(rc.Description),
		EndpointConfiguration: &awsapigateway.EndpointConfiguration{
			Types: &[]awsapigateway.EndpointType{endpointType(rc.EndpointType)},
		},
		DeployOptions: &awsapigateway.StageOptions{
			StageName: jsii.String(linked.Stage.Name()),
		},
		CloudWatchRole: jsii.Bool(rc.CloudWatchRole),
	})

	m.Integration = awsapigateway.NewMockIntegration(integrationOptions(linked.Integration))

	mc := linked.Method
	m.Resource = m.API.Root().AddResource(jsii.String(mc.PathPart), nil)
	m.Method = m.Resource.AddMethod(jsii.String(mc.HTTPMethod), m.Integration, &awsapigateway.MethodOptions{
		ApiKeyRequired:  jsii.Bool(mc.APIKeyRequired),
		MethodResponses: methodResponses(mc.ResponseModels),
	})

	kc := linked.APIKey
	m.APIKey = awsapigateway.NewApiKey(scope, jsii.String(kc.ID), &awsapigateway.ApiKeyProps{
		ApiKeyName:  jsii.String(kc.Name),
		Description: jsii.String(kc.Description),
		Enabled:     jsii.Bool(kc.Enabled),
	})

	uc := linked.UsagePlan
	m.UsagePlan = m.API.AddUsagePlan(jsii.String(uc.ID), &awsapigateway.UsagePlanProps{
		Name:        jsii.String(uc.Name),
		Description: jsii.String(uc.Description),
		Throttle: &awsapigateway.ThrottleSettings{
			RateLimit:  jsii.Number(uc.Throttle.RateLimit),
			BurstLimit: jsii.Number(float64(uc.Throttle.BurstLimit)),
		},
		Quota: &awsapigateway.QuotaSettings{
			Limit:  jsii.Number(float64(uc.Quota.Limit)),
			Period: quotaPeriod(uc.Quota.Period),
		},
	})
	m.UsagePlan.AddApiKey(m.APIKey, nil)
	m.UsagePlan.AddApiStage(&awsapigateway.UsagePlanPerApiStage{
		Stage: m.API.DeploymentStage(),
	})

	for _, out := range linked.Outputs {
		m.Outputs[out.Name] = awscdk.NewCfnOutput(scope, jsii.String(out.Name), &awscdk.CfnOutputProps{
			Value:       m.attribute(out.ValueRef),
			Description: jsii.String(out.Description),
		})
	}

	return m
}

// attribute maps a resolved output expression onto the construct token.
func (m *MockAPI) attribute(ref config.AttrRef) *string {
	switch ref.TargetKind() {
	case config.KindRestAPI:
		switch ref.Attribute() {
		case "Url":
			return m.API.Url()
		case "RestApiId":
			return m.API.RestApiId()
		case "RootResourceId":
			return m.API.RestApiRootResourceId()
		}
	case config.KindStage:
		return m.API.DeploymentStage().StageName()
	case config.KindAPIKey:
		if ref.Attribute() == "KeyArn" {
			return m.APIKey.KeyArn()
		}
		return m.APIKey.KeyId()
	case config.KindUsagePlan:
		return m.UsagePlan.UsagePlanId()
	}
	// Link rejects unknown attributes.
	panic(apigwmock.Errorf(apigwmock.ErrorCodeInternal, "unmapped output attribute %s", ref.Expression()))
}

func integrationOptions(ic config.MockIntegrationConfig) *awsapigateway.IntegrationOptions {
	responses := make([]*awsapigateway.IntegrationResponse, 0, len(ic.ResponseTemplates))
	for _, status := range sortedKeys(ic.ResponseTemplates) {
		response := &awsapigateway.IntegrationResponse{
			StatusCode: jsii.String(status),
			ResponseTemplates: &map[string]*string{
				config.ContentTypeJSON: jsii.String(ic.ResponseTemplates[status]),
			},
		}
		// The default response has no pattern; the rest match their own status.
		if pattern := ic.SelectionPattern(status); pattern != "" {
			response.SelectionPattern = jsii.String(pattern)
		}
		responses = append(responses, response)
	}

	requestTemplates := make(map[string]*string, len(ic.RequestTemplates))
	for contentType, tpl := range ic.RequestTemplates {
		requestTemplates[contentType] = jsii.String(tpl)
	}

	return &awsapigateway.IntegrationOptions{
		IntegrationResponses: &responses,
		PassthroughBehavior:  passthroughBehavior(ic.PassthroughBehavior),
		RequestTemplates:     &requestTemplates,
	}
}

func methodResponses(models map[string]config.ModelRef) *[]*awsapigateway.MethodResponse {
	out := make([]*awsapigateway.MethodResponse, 0, len(models))
	for _, status := range sortedKeys(models) {
		out = append(out, &awsapigateway.MethodResponse{
			StatusCode: jsii.String(status),
			ResponseModels: &map[string]awsapigateway.IModel{
				config.ContentTypeJSON: model(models[status]),
			},
		})
	}
	return &out
}

func endpointType(t config.EndpointType) awsapigateway.EndpointType {
	switch t {
	case config.EndpointEdge:
		return awsapigateway.EndpointType_EDGE
	case config.EndpointPrivate:
		return awsapigateway.EndpointType_PRIVATE
	default:
		return awsapigateway.EndpointType_REGIONAL
	}
}

func passthroughBehavior(b config.PassthroughBehavior) awsapigateway.PassthroughBehavior {
	switch b {
	case config.PassthroughWhenNoMatch:
		return awsapigateway.PassthroughBehavior_WHEN_NO_MATCH
	case config.PassthroughWhenNoTemplates:
		return awsapigateway.PassthroughBehavior_WHEN_NO_TEMPLATES
	default:
		return awsapigateway.PassthroughBehavior_NEVER
	}
}

func quotaPeriod(p config.QuotaPeriod) awsapigateway.Period {
	switch p {
	case config.PeriodDay:
		return awsapigateway.Period_DAY
	case config.PeriodWeek:
		return awsapigateway.Period_WEEK
	default:
		return awsapigateway.Period_MONTH
	}
}

func model(ref config.ModelRef) awsapigateway.IModel {
	if ref == config.ModelError {
		return awsapigateway.Model_ERROR_MODEL()
	}
	return awsapigateway.Model_EMPTY_MODEL()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
