package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentic-research/mmdb/internal/render"
	"github.com/agentic-research/mmdb/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Walk the whole search tree and decode every entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		rep, err := verify.Database(r)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}

		lengths := make(map[string]any, len(rep.PrefixLengths))
		for bits, n := range rep.PrefixLengths {
			lengths["/"+strconv.Itoa(bits)] = n
		}
		fmt.Println(render.Any(map[string]any{
			"nodes_visited":    rep.NodesVisited,
			"networks":         rep.Networks,
			"aliased_networks": rep.AliasedNetworks,
			"holes":            rep.Holes,
			"distinct_entries": rep.DistinctEntries,
			"max_depth":        rep.MaxDepth,
			"prefix_lengths":   lengths,
		}, true))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
