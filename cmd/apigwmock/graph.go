package main

import (
	"github.com/spf13/cobra"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/graph"
)

func newGraphCmd(flags *globalFlags) *cobra.Command {
	var (
		sf             = &synthFlags{}
		outputFormat   string
		cluster        bool
		includeOutputs bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate a graph of resource dependencies",
		Long: `Generate a DOT or Mermaid graph of the synthesized template's dependencies.

Examples:
    apigwmock graph | dot -Tpng -o deps.png
    apigwmock graph -f mermaid
    apigwmock graph --cluster --outputs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var format graph.Format
			switch outputFormat {
			case "dot":
				format = graph.FormatDOT
			case "mermaid":
				format = graph.FormatMermaid
			default:
				return apigwmock.Errorf(apigwmock.ErrorCodeConfigInvalid, "unknown format: %s (use 'dot' or 'mermaid')", outputFormat)
			}

			res, err := sf.synthesize(flags)
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:           format,
				ClusterByService: cluster,
				IncludeOutputs:   includeOutputs,
			}
			return gen.Generate(res.Template, cmd.OutOrStdout())
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVar(&cluster, "cluster", false, "Cluster resources by AWS service")
	cmd.Flags().BoolVar(&includeOutputs, "outputs", false, "Include stack output nodes")
	return cmd
}
