package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/agentic-research/mmdb/internal/database"
	"github.com/agentic-research/mmdb/internal/render"
)

const historyFile = ".mmdb_history"

const shellHelp = `Type an IP address to look it up. Commands:
  .metadata          print the database metadata
  .path <expr>       apply a JSONPath to every result; .path alone clears it
  .db <name|path>    switch to another database
  .help              show this help
  .quit              exit`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive lookup shell",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, err := cfg.Resolve(dbFlag)
		if err != nil {
			return err
		}
		r, err := database.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		home, _ := os.UserHomeDir()
		histPath := filepath.Join(home, historyFile)

		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)

		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigc)
		go func() {
			<-sigc
			ln.Close()
			os.Exit(130)
		}()

		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}

		fmt.Printf("Connected to %s. Type an IP address, or .help for commands.\n", path)

		pathExpr := ""
	repl:
		for {
			line, err := ln.Prompt("mmdb> ")
			if err != nil {
				if errors.Is(err, liner.ErrPromptAborted) {
					continue
				}
				if errors.Is(err, io.EOF) {
					fmt.Println()
					break
				}
				return err
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			ln.AppendHistory(line)

			if strings.HasPrefix(line, ".") {
				fields := strings.Fields(line)
				switch fields[0] {
				case ".quit", ".exit":
					break repl
				case ".help":
					fmt.Println(shellHelp)
				case ".metadata":
					fmt.Println(render.Any(render.Metadata(r.Metadata()), true))
				case ".path":
					if len(fields) == 1 {
						pathExpr = ""
						fmt.Println("path cleared")
						continue
					}
					expr := strings.TrimSpace(strings.TrimPrefix(line, ".path"))
					if _, err := render.Extract(map[string]any{}, expr); err != nil {
						fmt.Println(err)
						continue
					}
					pathExpr = expr
				case ".db":
					if len(fields) != 2 {
						fmt.Println("usage: .db <name|path>")
						continue
					}
					newPath, err := cfg.Resolve(fields[1])
					if err != nil {
						fmt.Println(err)
						continue
					}
					nr, err := database.Open(newPath)
					if err != nil {
						fmt.Println(err)
						continue
					}
					_ = r.Close()
					r, path = nr, newPath
					fmt.Printf("Switched to %s\n", path)
				default:
					fmt.Printf("unknown command %s. Type .help for commands.\n", fields[0])
				}
				continue
			}

			addr, err := netip.ParseAddr(line)
			if err != nil {
				fmt.Printf("'%s' is not a valid IP address\n", line)
				continue
			}
			v, ok, err := r.Lookup(addr)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if !ok {
				fmt.Println("null")
				continue
			}
			out, err := render.JSON(v, render.Options{Pretty: true, Path: pathExpr})
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			fmt.Println(out)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
