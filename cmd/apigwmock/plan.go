package main

import (
	"github.com/spf13/cobra"

	"github.com/theory-cloud/apigwmock/pkg/config"
)

func newPlanCmd(flags *globalFlags) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the effective plan after overrides",
		Long: `Print the plan the stack is built from: defaults, then the YAML overrides
file, then environment overrides. The plan is linked before printing, so
dangling references are reported here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := loadPlan(configPath, flags.getenv)
			if err != nil {
				return err
			}
			if _, err := plan.Link(); err != nil {
				return err
			}
			out, err := config.Marshal(plan)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML plan overrides")
	return cmd
}
