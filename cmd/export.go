package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/mmdb/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every routed network as sqlite, jsonl or cbor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		name := exportFormat
		if !cmd.Flags().Changed("format") {
			name = cfg.ExportFormat(exportFormat)
		}
		format, err := export.ParseFormat(name)
		if err != nil {
			return err
		}

		r, err := openDatabaseWith(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		if format == export.FormatSQLite {
			if exportOut == "" || exportOut == "-" {
				return fmt.Errorf("sqlite export needs --out <file>")
			}
			n, err := export.SQLite(r, exportOut)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d networks to %s\n", n, exportOut)
			return nil
		}

		// Stream formats default to stdout; the summary goes to a file
		// destination only, so pipes stay clean.
		w := io.Writer(os.Stdout)
		toFile := exportOut != "" && exportOut != "-"
		if toFile {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOut, err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		var n int
		switch format {
		case export.FormatJSONL:
			n, err = export.JSONL(r, w)
		case export.FormatCBOR:
			n, err = export.CBOR(r, w)
		}
		if err != nil {
			return err
		}
		if toFile {
			fmt.Printf("Exported %d networks to %s\n", n, exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "jsonl",
		"Export format: sqlite, jsonl or cbor")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "",
		"Output file; stream formats default to stdout")
	rootCmd.AddCommand(exportCmd)
}
