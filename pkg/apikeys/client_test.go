package apikeys

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/apigwmock"
)

type fakeAPI struct {
	getKey   []*apigateway.GetApiKeyInput
	getPlans []*apigateway.GetUsagePlansInput

	keyErr error
	pages  []*apigateway.GetUsagePlansOutput
}

func (f *fakeAPI) GetApiKey(
	_ context.Context,
	params *apigateway.GetApiKeyInput,
	_ ...func(*apigateway.Options),
) (*apigateway.GetApiKeyOutput, error) {
	f.getKey = append(f.getKey, params)
	if f.keyErr != nil {
		return nil, f.keyErr
	}
	created := time.Unix(100, 0).UTC()
	return &apigateway.GetApiKeyOutput{
		Id:          params.ApiKey,
		Name:        aws.String("SampleMockApiKey"),
		Description: aws.String("API Key for Sample Mock API"),
		Enabled:     true,
		Value:       aws.String("s3cr3t-value"),
		StageKeys:   []string{"abc123/prod"},
		CreatedDate: &created,
	}, nil
}

func (f *fakeAPI) GetUsagePlans(
	_ context.Context,
	params *apigateway.GetUsagePlansInput,
	_ ...func(*apigateway.Options),
) (*apigateway.GetUsagePlansOutput, error) {
	f.getPlans = append(f.getPlans, params)
	page := f.pages[len(f.getPlans)-1]
	return page, nil
}

func TestNewClient_UsesInjectedAPI(t *testing.T) {
	c, err := NewClient(context.Background(), nil, WithAPI(&fakeAPI{}))
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestNewClient_FromAWSConfig(t *testing.T) {
	c, err := NewClient(context.Background(), WithAWSConfig(aws.Config{Region: "us-east-1"}))
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestClient_GetKey(t *testing.T) {
	fake := &fakeAPI{}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	key, err := c.GetKey(context.Background(), " k1a2b3c4d5 ")
	require.NoError(t, err)
	require.Equal(t, "k1a2b3c4d5", key.ID)
	require.Equal(t, "SampleMockApiKey", key.Name)
	require.True(t, key.Enabled)
	require.Equal(t, "s3cr3t-value", key.Value)
	require.Equal(t, []string{"abc123/prod"}, key.StageKeys)
	require.Equal(t, time.Unix(100, 0).UTC(), key.CreatedDate)

	require.Len(t, fake.getKey, 1)
	require.Equal(t, "k1a2b3c4d5", aws.ToString(fake.getKey[0].ApiKey))
	require.True(t, aws.ToBool(fake.getKey[0].IncludeValue))
}

func TestClient_ValidatesKeyID(t *testing.T) {
	fake := &fakeAPI{}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	_, err = c.GetKey(context.Background(), "  ")
	require.Error(t, err)
	require.Equal(t, apigwmock.ErrorCodeOutputsMissing, apigwmock.CodeOf(err))
	_, err = c.UsagePlans(context.Background(), "")
	require.Error(t, err)

	require.Empty(t, fake.getKey)
	require.Empty(t, fake.getPlans)
}

func TestClient_GetKey_ClassifiesErrors(t *testing.T) {
	fake := &fakeAPI{keyErr: &smithy.GenericAPIError{Code: "NotFoundException", Message: "Invalid API Key identifier specified"}}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	_, err = c.GetKey(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, apigwmock.ErrorCodeOutputsMissing, apigwmock.CodeOf(err))

	fake.keyErr = &smithy.GenericAPIError{Code: "TooManyRequestsException"}
	_, err = c.GetKey(context.Background(), "k")
	require.Equal(t, apigwmock.ErrorCodeAWSRequest, apigwmock.CodeOf(err))

	fake.keyErr = errors.New("dial tcp: connection refused")
	_, err = c.GetKey(context.Background(), "k")
	require.Equal(t, apigwmock.ErrorCodeAWSRequest, apigwmock.CodeOf(err))
}

func TestClient_UsagePlans_Paginates(t *testing.T) {
	fake := &fakeAPI{pages: []*apigateway.GetUsagePlansOutput{
		{
			Items: []types.UsagePlan{{
				Id:        aws.String("plan1"),
				Name:      aws.String("SampleUsagePlan"),
				Throttle:  &types.ThrottleSettings{RateLimit: 100, BurstLimit: 200},
				Quota:     &types.QuotaSettings{Limit: 10000, Period: types.QuotaPeriodTypeMonth},
				ApiStages: []types.ApiStage{{ApiId: aws.String("abc123"), Stage: aws.String("prod")}},
			}},
			Position: aws.String("next"),
		},
		{
			Items: []types.UsagePlan{{Id: aws.String("plan2")}},
		},
	}}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	plans, err := c.UsagePlans(context.Background(), "k1")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	require.Equal(t, UsagePlan{
		ID:          "plan1",
		Name:        "SampleUsagePlan",
		RateLimit:   100,
		BurstLimit:  200,
		QuotaLimit:  10000,
		QuotaPeriod: "MONTH",
		Stages:      []string{"abc123/prod"},
	}, plans[0])
	require.Equal(t, "plan2", plans[1].ID)

	require.Len(t, fake.getPlans, 2)
	require.Nil(t, fake.getPlans[0].Position)
	require.Equal(t, "next", aws.ToString(fake.getPlans[1].Position))
	require.Equal(t, "k1", aws.ToString(fake.getPlans[0].KeyId))
}

func TestClient_NilReceiver(t *testing.T) {
	var c *client
	_, err := c.GetKey(context.Background(), "k")
	require.Error(t, err)
	_, err = c.UsagePlans(context.Background(), "k")
	require.Error(t, err)
}

func TestPlanForStage(t *testing.T) {
	plans := []UsagePlan{
		{ID: "other", Stages: []string{"abc123/dev"}},
		{ID: "plan1", Stages: []string{"zzz/beta", "abc123/prod"}},
		{ID: "plan2", Stages: []string{"abc123/prod"}},
	}

	got, ok := PlanForStage(plans, "prod")
	require.True(t, ok)
	require.Equal(t, "plan1", got.ID)

	_, ok = PlanForStage(plans, "staging")
	require.False(t, ok)
	_, ok = PlanForStage(plans, "")
	require.False(t, ok)
	_, ok = PlanForStage([]UsagePlan{{ID: "bad", Stages: []string{"prod"}}}, "prod")
	require.False(t, ok, "associations without an api id are ignored")
}
