package cmd

import (
	"fmt"

	"github.com/myle-app/myle/internal/archive"
	"github.com/myle-app/myle/internal/logging"
	"github.com/spf13/cobra"
)

// CreateExtractCmd creates the extract command.
func CreateExtractCmd() *cobra.Command {
	var configFile string
	var password string
	var destDir string
	var resourcesDir string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "extract <archive>",
		Short: "Extract an archive with 7-Zip",
		Long: `Extracts an archive into a folder named after it, using the bundled 7-Zip or one found on PATH. ` +
			`Without a tool the archive is opened with the default handler.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogging(configFile, logJSON)

			ctx, stop := signalContext()
			defer stop()

			extractor := archive.NewExtractor(resourcesDir, nil, logging.GetLogger("archive"))
			res, err := extractor.Extract(ctx, args[0], password, destDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Opened {
				fmt.Fprintln(out, res.Output)
				return nil
			}
			fmt.Fprintln(out, res.Dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "myle.toml", "Path to configuration file")
	cmd.Flags().StringVarP(&password, "password", "P", "", "Archive password")
	cmd.Flags().StringVar(&destDir, "dest", "", "Parent directory for the extraction folder (default: next to the archive)")
	cmd.Flags().StringVar(&resourcesDir, "resources", "", "Directory searched first for the bundled 7-Zip")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}
