package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/apikeys"
	"github.com/theory-cloud/apigwmock/pkg/awsenv"
	"github.com/theory-cloud/apigwmock/pkg/logger"
	"github.com/theory-cloud/apigwmock/pkg/outputs"
	"github.com/theory-cloud/apigwmock/pkg/smoke"
)

// EnvAPIKey supplies the key value without an API Gateway lookup.
const EnvAPIKey = "APIGWMOCK_API_KEY"

var newKeyClient = func(ctx context.Context, env awsenv.Options) (apikeys.Client, error) {
	return apikeys.NewClient(ctx, apikeys.WithEnvironment(env))
}

func newSmokeCmd(flags *globalFlags) *cobra.Command {
	var (
		file      string
		stackName string
		path      string
		apiKey    string
		env       awsenv.Options
	)

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Call the deployed API with and without its key",
		Long: `Read the deployed outputs, resolve the API key value, then GET the resource
twice: with the x-api-key header (expects 200 and the mock body) and without
it (expects 403).

The key value comes from --api-key, APIGWMOCK_API_KEY, or an API Gateway
GetApiKey lookup of the ApiKeyId output. The lookup also requires the key to be
enabled and bound to a usage plan that covers the stage in ApiUrl.

Examples:
    apigwmock smoke -o outputs.json
    apigwmock smoke -o outputs.json --region us-east-1 --profile sandbox
    apigwmock smoke -o outputs.json --endpoint http://localhost:4566`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			out, err := outputs.Load(file, stackName)
			if err != nil {
				return err
			}
			if err := out.Validate(); err != nil {
				return err
			}

			key := strings.TrimSpace(apiKey)
			if key == "" {
				key = envOr(flags.getenv, EnvAPIKey, "")
			}
			if key == "" {
				key, err = lookupKey(ctx, out, env)
				if err != nil {
					return err
				}
			}

			checker := smoke.NewChecker(hooks())
			report, runErr := checker.Run(ctx, smoke.Target{BaseURL: out.APIURL, Path: path, APIKey: key})

			w := cmd.OutOrStdout()
			for _, p := range report.Calls {
				result := "PASS"
				if !p.Passed() {
					result = "FAIL " + p.Err
				}
				fmt.Fprintf(w, "%-12s %s %d %s\n", p.Name, p.URL, p.Status, result)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&file, "outputs-file", "o", "outputs.json", "Outputs file from cdk deploy")
	cmd.Flags().StringVarP(&stackName, "stack-name", "s", "", "Stack to read when the file has several")
	cmd.Flags().StringVar(&path, "path", smoke.DefaultPath, "Resource path under the stage URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key value (skips the API Gateway lookup)")
	cmd.Flags().StringVar(&env.Region, "region", "", "AWS region for the key lookup")
	cmd.Flags().StringVar(&env.Profile, "profile", "", "Shared config profile for the key lookup")
	cmd.Flags().StringVar(&env.Endpoint, "endpoint", "", "API Gateway endpoint override, e.g. LocalStack")
	return cmd
}

// lookupKey reads the key value from API Gateway and checks that a usage plan
// meters it on the deployed stage.
func lookupKey(ctx context.Context, out *outputs.StackOutputs, env awsenv.Options) (string, error) {
	client, err := newKeyClient(ctx, env)
	if err != nil {
		return "", err
	}
	k, err := client.GetKey(ctx, out.APIKeyID)
	if err != nil {
		return "", err
	}
	masked := logger.MaskAPIKeyID(out.APIKeyID)
	if !k.Enabled {
		return "", apigwmock.Errorf(apigwmock.ErrorCodeSmokeFailed, "api key %s is disabled", masked)
	}

	plans, err := client.UsagePlans(ctx, out.APIKeyID)
	if err != nil {
		return "", err
	}
	stage := out.Stage()
	plan, ok := apikeys.PlanForStage(plans, stage)
	if !ok {
		return "", apigwmock.Errorf(apigwmock.ErrorCodeSmokeFailed,
			"api key %s is not in a usage plan for stage %q (%d plans checked)", masked, stage, len(plans))
	}

	logger.Logger().WithStack(out.StackName).Info("resolved api key", map[string]any{
		"api_key_id":   out.APIKeyID,
		"usage_plan":   plan.Name,
		"stage":        stage,
		"rate_limit":   plan.RateLimit,
		"burst_limit":  plan.BurstLimit,
		"quota_limit":  plan.QuotaLimit,
		"quota_period": plan.QuotaPeriod,
	})
	return k.Value, nil
}
