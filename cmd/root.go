package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/mmdb/internal/config"
	"github.com/agentic-research/mmdb/internal/database"
)

const version = "0.1.0"

var (
	dbFlag     string
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:     "mmdb",
	Short:   "Read, inspect and export MaxMind DB files",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbFlag, "db", "d", "",
		"Database to open: a configured name or a file path")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Config file (default ~/.config/mmdb/config.hcl)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads the file named by --config, falling back to the default
// location. A missing default file yields an empty config.
func loadConfig() (*config.Config, error) {
	return config.LoadDefault(configFlag)
}

// openDatabase resolves --db through the config and opens the reader.
func openDatabase() (*database.Reader, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openDatabaseWith(cfg)
}

// openDatabaseWith resolves --db against an already loaded config.
func openDatabaseWith(cfg *config.Config) (*database.Reader, error) {
	path, err := cfg.Resolve(dbFlag)
	if err != nil {
		return nil, err
	}
	return database.Open(path)
}
