// Package apikeys looks up deployed API keys and their usage plans.
package apikeys

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/smithy-go"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/awsenv"
)

// Client reads API keys from API Gateway.
type Client interface {
	GetKey(ctx context.Context, id string) (Key, error)
	UsagePlans(ctx context.Context, keyID string) ([]UsagePlan, error)
}

// Key is a deployed API key. Value is the secret and must never be logged.
type Key struct {
	ID          string
	Name        string
	Description string
	Enabled     bool
	Value       string
	StageKeys   []string
	CreatedDate time.Time
}

// UsagePlan is a usage plan an API key is bound to.
type UsagePlan struct {
	ID          string
	Name        string
	RateLimit   float64
	BurstLimit  int32
	QuotaLimit  int32
	QuotaPeriod string
	// Stages lists "<apiId>/<stage>" associations.
	Stages []string
}

type apiGatewayAPI interface {
	GetApiKey(
		ctx context.Context,
		params *apigateway.GetApiKeyInput,
		optFns ...func(*apigateway.Options),
	) (*apigateway.GetApiKeyOutput, error)
	GetUsagePlans(
		ctx context.Context,
		params *apigateway.GetUsagePlansInput,
		optFns ...func(*apigateway.Options),
	) (*apigateway.GetUsagePlansOutput, error)
}

type client struct {
	api apiGatewayAPI
}

type clientOptions struct {
	api     apiGatewayAPI
	awsCfg  *aws.Config
	loadEnv awsenv.Options
}

type Option func(*clientOptions)

func WithAWSConfig(cfg aws.Config) Option {
	return func(opts *clientOptions) {
		cfgCopy := cfg
		opts.awsCfg = &cfgCopy
	}
}

// WithEnvironment loads the AWS config from env when no config is supplied.
func WithEnvironment(env awsenv.Options) Option {
	return func(opts *clientOptions) {
		opts.loadEnv = env
	}
}

func WithAPI(api apiGatewayAPI) Option {
	return func(opts *clientOptions) {
		opts.api = api
	}
}

func NewClient(ctx context.Context, options ...Option) (Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &clientOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(opts)
	}

	if opts.api != nil {
		return &client{api: opts.api}, nil
	}

	var cfg aws.Config
	if opts.awsCfg != nil {
		cfg = *opts.awsCfg
	} else {
		loaded, err := awsenv.Load(ctx, opts.loadEnv)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	return &client{api: apigateway.NewFromConfig(cfg)}, nil
}

func (c *client) GetKey(ctx context.Context, id string) (Key, error) {
	if c == nil || c.api == nil {
		return Key{}, apigwmock.NewError(apigwmock.ErrorCodeInternal, "apikeys: client is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Key{}, apigwmock.NewError(apigwmock.ErrorCodeOutputsMissing, "api key id is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	out, err := c.api.GetApiKey(ctx, &apigateway.GetApiKeyInput{
		ApiKey:       aws.String(id),
		IncludeValue: aws.Bool(true),
	})
	if err != nil {
		return Key{}, classify(err, "get api key")
	}

	key := Key{
		ID:          aws.ToString(out.Id),
		Name:        aws.ToString(out.Name),
		Description: aws.ToString(out.Description),
		Enabled:     out.Enabled,
		Value:       aws.ToString(out.Value),
		StageKeys:   append([]string(nil), out.StageKeys...),
	}
	if out.CreatedDate != nil {
		key.CreatedDate = *out.CreatedDate
	}
	return key, nil
}

func (c *client) UsagePlans(ctx context.Context, keyID string) ([]UsagePlan, error) {
	if c == nil || c.api == nil {
		return nil, apigwmock.NewError(apigwmock.ErrorCodeInternal, "apikeys: client is nil")
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return nil, apigwmock.NewError(apigwmock.ErrorCodeOutputsMissing, "api key id is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var plans []UsagePlan
	var position *string
	for {
		out, err := c.api.GetUsagePlans(ctx, &apigateway.GetUsagePlansInput{
			KeyId:    aws.String(keyID),
			Position: position,
		})
		if err != nil {
			return nil, classify(err, "get usage plans")
		}
		for _, item := range out.Items {
			plan := UsagePlan{
				ID:   aws.ToString(item.Id),
				Name: aws.ToString(item.Name),
			}
			if item.Throttle != nil {
				plan.RateLimit = item.Throttle.RateLimit
				plan.BurstLimit = item.Throttle.BurstLimit
			}
			if item.Quota != nil {
				plan.QuotaLimit = item.Quota.Limit
				plan.QuotaPeriod = string(item.Quota.Period)
			}
			for _, st := range item.ApiStages {
				plan.Stages = append(plan.Stages, aws.ToString(st.ApiId)+"/"+aws.ToString(st.Stage))
			}
			plans = append(plans, plan)
		}
		if aws.ToString(out.Position) == "" {
			return plans, nil
		}
		position = out.Position
	}
}

// classify maps API Gateway errors onto stable codes.
func classify(err error, op string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFoundException" {
		return apigwmock.WrapError(apigwmock.ErrorCodeOutputsMissing, op+": not found", err)
	}
	return apigwmock.WrapError(apigwmock.ErrorCodeAWSRequest, op, err)
}

// PlanForStage returns the first plan associated with stage on any API.
func PlanForStage(plans []UsagePlan, stage string) (UsagePlan, bool) {
	if stage == "" {
		return UsagePlan{}, false
	}
	for _, plan := range plans {
		for _, association := range plan.Stages {
			if _, name, ok := strings.Cut(association, "/"); ok && name == stage {
				return plan, true
			}
		}
	}
	return UsagePlan{}, false
}
