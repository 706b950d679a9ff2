package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theory-cloud/apigwmock/pkg/config"
	"github.com/theory-cloud/apigwmock/pkg/synth"
)

type synthFlags struct {
	configPath string
	stackName  string
	outdir     string
	format     string
	print      bool
}

func (f *synthFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML plan overrides")
	cmd.Flags().StringVarP(&f.stackName, "stack-name", "s", synth.DefaultStackName, "Stack name")
	cmd.Flags().StringVar(&f.outdir, "out", "", "Cloud assembly directory (default: CDK_OUTDIR or a temp dir)")
}

func (f *synthFlags) synthesize(flags *globalFlags) (*synth.Result, error) {
	plan, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	return synth.Synthesize(synth.Options{
		Plan:      plan,
		StackName: f.stackName,
		Outdir:    f.outdir,
		Getenv:    flags.getenv,
		Hooks:     hooks(),
	})
}

func newSynthCmd(flags *globalFlags) *cobra.Command {
	sf := &synthFlags{}

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize the stack into a cloud assembly",
		Long: `Synthesize the mock API stack. This is the cdk.json app command; the CDK CLI
sets CDK_OUTDIR and reads the assembly from there.

Examples:
    apigwmock synth --out cdk.out
    apigwmock synth --print -f yaml
    APIGWMOCK_STAGE=dev apigwmock synth -c plan.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := sf.synthesize(flags)
			if err != nil {
				return err
			}
			if sf.print {
				return synth.WriteTemplate(cmd.OutOrStdout(), res.Template, sf.format)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Synthesized %s (%d resources) to %s\n",
				res.StackName, len(res.Template.Resources), res.TemplatePath)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVarP(&sf.format, "format", "f", "json", "Template format for --print: json or yaml")
	cmd.Flags().BoolVarP(&sf.print, "print", "p", false, "Write the template to stdout")
	return cmd
}
