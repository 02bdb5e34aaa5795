// Command bilancioctl inspects projections and runs maintenance tasks
// against the bilancio database.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

var (
	flagMonth  string
	flagDBPath string
)

var rootCmd = &cobra.Command{
	Use:           "bilancioctl",
	Short:         "Bilancio maintenance CLI",
	Long:          "Inspect spending projections, run budget checks and manage the bilancio database.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagMonth, "month", "m", "", "Month as YYYY-MM (default: current month)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database path (default: SQLITE_DB_PATH)")
}

// env is what every subcommand needs once the configuration is loaded.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	repo   *storage.SQLiteRepository
}

func setup() (*env, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if flagDBPath != "" {
		cfg.SQLiteDBPath = flagDBPath
	}
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), Component: log.ComponentApp, Output: os.Stderr})
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, repo: repo}, nil
}

func (e *env) Close() { e.repo.Close() }

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
