package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/buildstamp/internal/service/stamp"
)

var (
	// reportFormat selects the report encoding.
	reportFormat string

	// showCmd prints the derived version without touching the environment.
	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the derived version, defines and payload.",
		Long: `Prints everything buildstamp would hand to the build as YAML or JSON:
the manifest version and its semantic-version parts, the repository facts,
the composed version, the plain defines and the encoded payload.
Neither the environment nor the injector is touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := stamp.Derive(cmd.Context(), commonOptions())
			if err != nil {
				return err
			}

			return stamp.WriteReport(cmd.OutOrStdout(), reportFormat, stamp.NewReport(result))
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	showCmd.Flags().StringVarP(&reportFormat, "format", "f", stamp.ReportYAML, "report format: yaml or json")
}
