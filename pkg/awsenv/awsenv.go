// Package awsenv loads AWS SDK configuration for the deployment tooling.
package awsenv

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/theory-cloud/apigwmock"
)

// StaticCredentials pin credentials, typically for a local emulator such as LocalStack.
type StaticCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Options selects region, profile and endpoint. Empty values defer to the default chain.
type Options struct {
	Region            string
	Profile           string
	Endpoint          string
	StaticCredentials *StaticCredentials
}

type loader func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error)

// Load resolves an aws.Config from opts and the default credential chain.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	return load(ctx, opts, awsconfig.LoadDefaultConfig)
}

func load(ctx context.Context, opts Options, fn loader) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(opts.Region); region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	if profile := strings.TrimSpace(opts.Profile); profile != "" {
		optFns = append(optFns, awsconfig.WithSharedConfigProfile(profile))
	}
	if sc := opts.StaticCredentials; sc != nil {
		if strings.TrimSpace(sc.AccessKeyID) == "" || strings.TrimSpace(sc.SecretAccessKey) == "" {
			return aws.Config{}, apigwmock.NewError(apigwmock.ErrorCodeConfigInvalid, "static credentials need an access key id and secret")
		}
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, sc.SessionToken),
		))
	}

	cfg, err := fn(ctx, optFns...)
	if err != nil {
		return aws.Config{}, apigwmock.WrapError(apigwmock.ErrorCodeConfigLoad, "load aws config", err)
	}

	if endpoint := normalizeEndpoint(opts.Endpoint); endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}
	return cfg, nil
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}
