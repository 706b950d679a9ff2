// Package synth synthesizes the mock API stack into a cloud assembly.
package synth

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/config"
	"github.com/theory-cloud/apigwmock/pkg/naming"
	"github.com/theory-cloud/apigwmock/pkg/observability"
	"github.com/theory-cloud/apigwmock/pkg/stack"
	"github.com/theory-cloud/apigwmock/pkg/template"
)

// DefaultStackName is the stack id used when Options.StackName is empty.
const DefaultStackName = "SampleCdkApigatewayStack"

const (
	envDefaultAccount = "CDK_DEFAULT_ACCOUNT"
	envDefaultRegion  = "CDK_DEFAULT_REGION"
)

// Options configures a synthesis run.
type Options struct {
	// Plan defaults to config.Default(). It is cloned before environment overrides apply.
	Plan *config.Plan

	StackName   string
	Description string

	// Outdir is the cloud assembly directory. Empty lets the CDK choose
	// (CDK_OUTDIR or a temporary directory).
	Outdir string

	// Account and Region pin the stack environment. When both are empty the
	// CDK_DEFAULT_* variables are used; when those are empty too the stack is
	// environment-agnostic.
	Account string
	Region  string

	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	Hooks observability.Hooks
}

// Result describes a synthesized stack.
type Result struct {
	StackName    string
	ArtifactID   string
	Outdir       string
	TemplatePath string
	Plan         *config.Plan
	Template     *template.Template
}

// Synthesize builds the stack in a fresh App and synthesizes it.
//
// Panics raised by the CDK during construction or synthesis are returned as
// synth.failed errors.
func Synthesize(opts Options) (res *Result, err error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	plan := config.Default()
	if opts.Plan != nil {
		plan = opts.Plan.Clone()
	}
	if err := config.ApplyEnv(plan, getenv); err != nil {
		return nil, err
	}

	name := naming.StackName(opts.StackName)
	if name == "" {
		name = DefaultStackName
	}

	opts.Hooks.Emit(observability.EventRecord{
		Level:  "debug",
		Event:  "synth.started",
		Stack:  name,
		Fields: map[string]any{"stage": plan.RestAPI.StageName, "outdir": opts.Outdir},
	})

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = apigwmock.FromPanic(apigwmock.ErrorCodeSynthFailed, r)
		}
		if err != nil {
			opts.Hooks.Emit(observability.EventRecord{
				Level:  "error",
				Event:  "synth.failed",
				Stack:  name,
				Err:    err,
				Fields: map[string]any{"error_code": apigwmock.CodeOf(err)},
			})
		}
	}()

	appProps := &awscdk.AppProps{AnalyticsReporting: jsii.Bool(false)}
	if opts.Outdir != "" {
		appProps.Outdir = jsii.String(opts.Outdir)
	}
	app := awscdk.NewApp(appProps)

	s, err := stack.NewMockAPIStack(app, name, &stack.MockAPIStackProps{
		StackProps: stackProps(opts, getenv),
		Plan:       plan,
	})
	if err != nil {
		return nil, err
	}

	assembly := app.Synth(nil)
	artifact := assembly.GetStackArtifact(s.Stack.ArtifactId())

	raw, err := json.Marshal(artifact.Template())
	if err != nil {
		return nil, apigwmock.WrapError(apigwmock.ErrorCodeSynthFailed, "encode synthesized template", err)
	}
	tpl, err := template.Parse(raw)
	if err != nil {
		return nil, apigwmock.WrapError(apigwmock.ErrorCodeSynthFailed, "parse synthesized template", err)
	}

	res = &Result{
		StackName:    name,
		ArtifactID:   *s.Stack.ArtifactId(),
		Outdir:       *assembly.Directory(),
		TemplatePath: *artifact.TemplateFullPath(),
		Plan:         plan,
		Template:     tpl,
	}

	opts.Hooks.Emit(observability.EventRecord{
		Level: "info",
		Event: "synth.completed",
		Stack: name,
		Fields: map[string]any{
			"resources": len(tpl.Resources),
			"outputs":   len(tpl.Outputs),
			"template":  res.TemplatePath,
		},
	})
	return res, nil
}

// WriteTemplate serializes tpl as json or yaml.
func WriteTemplate(w io.Writer, tpl *template.Template, format string) error {
	return template.Write(w, tpl, template.Format(strings.ToLower(strings.TrimSpace(format))))
}

func stackProps(opts Options, getenv func(string) string) awscdk.StackProps {
	props := awscdk.StackProps{}
	if opts.Description != "" {
		props.Description = jsii.String(opts.Description)
	}

	account, region := opts.Account, opts.Region
	if account == "" && region == "" {
		account, region = getenv(envDefaultAccount), getenv(envDefaultRegion)
	}
	if account == "" && region == "" {
		return props
	}

	env := &awscdk.Environment{}
	if account != "" {
		env.Account = jsii.String(account)
	}
	if region != "" {
		env.Region = jsii.String(region)
	}
	props.Env = env
	return props
}
