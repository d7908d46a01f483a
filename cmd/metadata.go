package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/mmdb/internal/render"
)

var metadataPretty bool

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Print the database metadata as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		fmt.Println(render.Any(render.Metadata(r.Metadata()), metadataPretty))
		return nil
	},
}

func init() {
	metadataCmd.Flags().BoolVar(&metadataPretty, "pretty", false, "Indent the JSON output")
	rootCmd.AddCommand(metadataCmd)
}
