package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/userhub/notifier/pkg/system"
)

func newVersionCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show notifier version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := system.GetBuildInfo()
			writer := cmd.OutOrStdout()

			if outputFormat == "json" {
				encoder := json.NewEncoder(writer)
				encoder.SetIndent("", "  ")
				return encoder.Encode(info)
			}
			_, err := fmt.Fprintln(writer, info.String())
			return err
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: json")

	return cmd
}
