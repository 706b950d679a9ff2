package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theory-cloud/apigwmock/pkg/logger"
	"github.com/theory-cloud/apigwmock/pkg/template"
)

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	sf := &synthFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Synthesize and check the template against the plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := sf.synthesize(flags)
			if err != nil {
				return err
			}
			if err := template.Verify(res.Template, res.Plan); err != nil {
				logger.Logger().WithStack(res.StackName).Error("template verification failed", map[string]any{
					"error": err.Error(),
				})
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d resources, outputs %v)\n",
				res.StackName, len(res.Template.Resources), res.Template.OutputNames())
			return nil
		},
	}

	sf.register(cmd)
	return cmd
}
