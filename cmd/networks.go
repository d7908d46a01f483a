package cmd

import (
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/agentic-research/mmdb/internal/database"
	"github.com/agentic-research/mmdb/internal/decode"
	"github.com/agentic-research/mmdb/internal/render"
)

var (
	networksRecords bool
	networksAliased bool
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List every routed network in address order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		opts := database.NetworksOptions{IncludeAliased: networksAliased}
		return r.Networks(opts, func(p netip.Prefix, v decode.Value) error {
			if networksRecords {
				fmt.Println(render.Any(map[string]any{
					"network": p.String(),
					"record":  render.Display(v),
				}, false))
				return nil
			}
			fmt.Println(p)
			return nil
		})
	},
}

func init() {
	networksCmd.Flags().BoolVar(&networksRecords, "records", false,
		"Print each network with its record as JSONL")
	networksCmd.Flags().BoolVar(&networksAliased, "aliased", false,
		"Also list networks reached through IPv4 aliases")
	rootCmd.AddCommand(networksCmd)
}
