package cmd

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/mmdb/internal/render"
)

// exitNoRecord distinguishes "the address routes nowhere" from real
// failures, which exit 1.
const exitNoRecord = 2

var (
	lookupPath   string
	lookupPretty bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <ip>",
	Short: "Look up an IP address and print its record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := netip.ParseAddr(args[0])
		if err != nil {
			return fmt.Errorf("'%s' is not a valid IP address", args[0])
		}

		r, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		v, ok, err := r.Lookup(addr)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("null")
			_ = r.Close()
			os.Exit(exitNoRecord)
		}

		out, err := render.JSON(v, render.Options{Pretty: lookupPretty, Path: lookupPath})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupPath, "path", "",
		"JSONPath expression applied to the record, e.g. '$.country.iso_code'")
	lookupCmd.Flags().BoolVar(&lookupPretty, "pretty", false, "Indent the JSON output")
	rootCmd.AddCommand(lookupCmd)
}
