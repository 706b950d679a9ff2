// Command apigwmock synthesizes, inspects and smoke-tests the sample mock API stack.
//
// Usage:
//
//	apigwmock synth                      Synthesize the cloud assembly (cdk.json app)
//	apigwmock verify                     Synthesize and check the template
//	apigwmock graph -f mermaid           Render resource dependencies
//	apigwmock outputs -o outputs.json    Read `cdk deploy --outputs-file` results
//	apigwmock smoke -o outputs.json      Call the deployed API with and without its key
//	apigwmock version                    Show version
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/config"
	"github.com/theory-cloud/apigwmock/pkg/logger"
	"github.com/theory-cloud/apigwmock/pkg/observability"
	apigwzap "github.com/theory-cloud/apigwmock/pkg/observability/zap"
)

type globalFlags struct {
	logLevel  string
	logFormat string
	getenv    func(string) string
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr, os.Getenv)
	err := root.ExecuteContext(context.Background())
	closeLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(apigwmock.ExitCode(err))
	}
}

func newRootCmd(stdout, stderr io.Writer, getenv func(string) string) *cobra.Command {
	flags := &globalFlags{getenv: getenv}

	root := &cobra.Command{
		Use:   "apigwmock",
		Short: "Sample API Gateway mock API with an API key",
		Long: `apigwmock defines a regional REST API whose GET /crews method returns a fixed
JSON body from a mock integration. Calls require an API key bound to a usage
plan (100 req/s, burst 200, 10000 per month).

Use it as the cdk.json app:

    cdk synth
    cdk deploy --outputs-file outputs.json
    apigwmock smoke -o outputs.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogger(cmd.Context(), flags, cmd.ErrOrStderr(), cmd.Name())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", envOr(getenv, config.EnvLogLevel, "warn"),
		"Log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", envOr(getenv, config.EnvLogFormat, "console"),
		"Log format: console or json")

	root.AddCommand(
		newSynthCmd(flags),
		newVerifyCmd(flags),
		newPlanCmd(flags),
		newGraphCmd(flags),
		newOutputsCmd(),
		newSmokeCmd(flags),
		newVersionCmd(),
	)
	return root
}

func setupLogger(ctx context.Context, flags *globalFlags, stderr io.Writer, command string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l, err := apigwzap.NewZapLogger(observability.LoggerConfig{
		Level:  strings.ToLower(strings.TrimSpace(flags.logLevel)),
		Format: strings.ToLower(strings.TrimSpace(flags.logFormat)),
	},
		apigwzap.WithOutput(stderr),
		apigwzap.WithEnvironmentErrorNotifications(ctx, apigwzap.DefaultEnvironmentErrorNotifications()),
	)
	if err != nil {
		return apigwmock.WrapError(apigwmock.ErrorCodeConfigInvalid, "configure logger", err)
	}
	closeLogger()
	logger.SetLogger(l.WithCommand(command))
	return nil
}

func closeLogger() {
	l := logger.Logger()
	_ = l.Flush(context.Background())
	_ = l.Close()
	logger.SetLogger(nil)
}

func hooks() observability.Hooks {
	return observability.HooksFromLogger(logger.Logger())
}

func envOr(getenv func(string) string, key, fallback string) string {
	if getenv == nil {
		return fallback
	}
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

// loadPlan reads the optional plan file and applies environment overrides.
func loadPlan(path string, getenv func(string) string) (*config.Plan, error) {
	plan, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(plan, getenv); err != nil {
		return nil, err
	}
	return plan, nil
}
