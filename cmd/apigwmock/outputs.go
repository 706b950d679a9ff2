package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theory-cloud/apigwmock/pkg/config"
	"github.com/theory-cloud/apigwmock/pkg/logger"
	"github.com/theory-cloud/apigwmock/pkg/outputs"
)

func newOutputsCmd() *cobra.Command {
	var (
		file      string
		stackName string
	)

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Read and validate deployed stack outputs",
		Long: `Read a file written by "cdk deploy --outputs-file" and check that ApiUrl and
ApiKeyId are present. The key id is masked; fetch the key value with
"aws apigateway get-api-key --api-key <id> --include-value" or run "smoke".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := outputs.Load(file, stackName)
			if err != nil {
				return err
			}
			if err := out.Validate(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Stack:    %s\n", out.StackName)
			fmt.Fprintf(w, "ApiUrl:   %s\n", out.APIURL)
			fmt.Fprintf(w, "ApiKeyId: %s\n", logger.MaskAPIKeyID(out.APIKeyID))

			names := make([]string, 0, len(out.All))
			for name := range out.All {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if name == config.OutputAPIURL || name == config.OutputAPIKeyID {
					continue
				}
				fmt.Fprintf(w, "%s: %s\n", name, out.All[name])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "outputs-file", "o", "outputs.json", "Outputs file from cdk deploy")
	cmd.Flags().StringVarP(&stackName, "stack-name", "s", "", "Stack to read when the file has several")
	return cmd
}
