// cmd/main.go - Program entry
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"code-reviewer/internal/config"
)

const appName = "code-reviewer"

var (
	// set by the linker during build
	osName   string
	archName string
	version  string
)

// Global flags
var (
	configPath string
	logLevel   string
	homeDir    string
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Upload a zipped codebase and review it with an LLM",
	Long: `code-reviewer stores every file of an uploaded zip archive and produces
per-file analyses, an application summary and dependency graph scripts
through an OpenAI or Anthropic model. Results are cached in SQLite or MySQL.

Examples:
  code-reviewer serve --config config.toml
  code-reviewer ingest ./shop.zip --name shop
  code-reviewer migrate --sql seed.sql`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if osName == "" {
			osName = runtime.GOOS
		}
		if archName == "" {
			archName = runtime.GOARCH
		}
		config.SetAppInfo(config.AppInfo{
			AppName:  appName,
			Version:  version,
			OSName:   osName,
			ArchName: archName,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Data directory (default ~/.code-reviewer)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
