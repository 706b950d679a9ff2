package config

import "encoding/json"

const (
	DefaultRestAPIID     = "SampleMockApi"
	DefaultIntegrationID = "CrewsMockIntegration"
	DefaultAPIKeyID      = "SampleApiKey"
	DefaultUsagePlanID   = "SampleUsagePlan"
	DefaultStageName     = "prod"

	OutputAPIURL   = "ApiUrl"
	OutputAPIKeyID = "ApiKeyId"
)

// DefaultRequestTemplate selects the 200 integration response.
const DefaultRequestTemplate = `{"statusCode": 200}`

// DefaultResponseTemplate is the body returned by GET /crews.
var DefaultResponseTemplate = mustJSON(struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}{
	Message:   "Hello from Mock API!",
	Timestamp: "$context.requestTime",
	Status:    "success",
})

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Default returns the sample mock API declaration. Each call returns a fresh copy.
func Default() *Plan {
	return &Plan{
		RestAPI: RestAPIConfig{
			ID:           DefaultRestAPIID,
			Name:         "Sample Mock API with API Key",
			Description:  "API Gateway with Mock Integration and API Key",
			EndpointType: EndpointRegional,
			StageName:    DefaultStageName,
		},
		Integration: MockIntegrationConfig{
			ID: DefaultIntegrationID,
			ResponseTemplates: map[string]string{
				"200": DefaultResponseTemplate,
			},
			PassthroughBehavior: PassthroughNever,
			RequestTemplates: map[string]string{
				ContentTypeJSON: DefaultRequestTemplate,
			},
		},
		Method: ResourceMethodConfig{
			PathPart:       "crews",
			HTTPMethod:     "GET",
			Integration:    DefaultIntegrationID,
			APIKeyRequired: true,
			ResponseModels: map[string]ModelRef{
				"200": ModelEmpty,
			},
		},
		APIKey: APIKeyConfig{
			ID:          DefaultAPIKeyID,
			Name:        "SampleMockApiKey",
			Description: "API Key for Sample Mock API",
			Enabled:     true,
		},
		UsagePlan: UsagePlanConfig{
			ID:          DefaultUsagePlanID,
			Name:        "SampleUsagePlan",
			Description: "Usage plan for Sample Mock API",
			Throttle: ThrottleConfig{
				RateLimit:  100,
				BurstLimit: 200,
			},
			Quota: QuotaConfig{
				Limit:  10000,
				Period: PeriodMonth,
			},
			APIKey: DefaultAPIKeyID,
			Stage:  DefaultStageName,
		},
		Outputs: []OutputConfig{
			{Name: OutputAPIURL, Value: DefaultRestAPIID + ".Url", Description: "API Gateway URL"},
			{Name: OutputAPIKeyID, Value: DefaultAPIKeyID + ".KeyId", Description: "API Key ID"},
		},
	}
}
