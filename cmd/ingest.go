package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"code-reviewer/internal/service"
)

var ingestName string

var ingestCmd = &cobra.Command{
	Use:   "ingest <archive.zip|directory>",
	Short: "Store a zip archive or a directory as a new application",
	Long: `Ingest stores every file of a zip archive, or of a directory zipped on the
fly, as one application. A directory defaults to its base name when --name
is not given; an archive defaults to the configured application name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap(true)
		if err != nil {
			return err
		}
		defer deps.close()

		svc, err := deps.services(nil)
		if err != nil {
			return err
		}

		target := args[0]
		info, err := os.Stat(target)
		if err != nil {
			return err
		}

		var result *service.IngestResult
		if info.IsDir() {
			name := ingestName
			if strings.TrimSpace(name) == "" {
				abs, err := filepath.Abs(target)
				if err != nil {
					return err
				}
				name = filepath.Base(abs)
			}
			result, err = svc.ingest.IngestDirectory(cmd.Context(), name, target)
		} else {
			result, err = svc.ingest.Ingest(cmd.Context(), ingestName, target)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "application %q stored with id %d: %d files, %d skipped\n",
			result.AppName, result.AppID, result.Files, result.Skipped)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestName, "name", "n", "", "Application name")
}
