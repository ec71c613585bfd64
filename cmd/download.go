package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myle-app/myle/internal/config"
	"github.com/myle-app/myle/internal/downloads"
	"github.com/myle-app/myle/internal/logging"
	"github.com/myle-app/myle/internal/transport"
	"github.com/myle-app/myle/internal/updater"
	"github.com/spf13/cobra"
)

// initLogging applies the [logging] section of configFile, with json output when asked.
func initLogging(configFile string, logJSON bool) {
	loggingConfig := config.LoadLoggingConfig(configFile)
	if logJSON {
		loggingConfig.Format = "json"
	}
	logging.Initialize(loggingConfig)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// CreateDownloadCmd creates the download command.
func CreateDownloadCmd() *cobra.Command {
	var configFile string
	var dir string
	var id string
	var maxRedirects int
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "download <url> [dest]",
		Short: "Download a file with the download engine",
		Long: `Downloads a URL into the downloads directory, following redirects and staging the ` +
			`data in a .part file that is renamed on completion. Interrupting removes the partial file.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogging(configFile, logJSON)
			logger := logging.GetLogger("downloads")

			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}
			if id == "" {
				id = fmt.Sprintf("cli-%d", time.Now().UnixMilli())
			}

			engine := downloads.New(downloads.Options{
				Dir:          dir,
				MaxRedirects: maxRedirects,
				Client: transport.New(
					transport.WithoutRedirects(),
					transport.WithResponseHeaderTimeout(30*time.Second),
				),
				Logger: logger,
			})

			ctx, stop := signalContext()
			defer stop()

			lastPercent := -1
			res, err := engine.Download(ctx, downloads.Request{
				ID:   id,
				URL:  args[0],
				Dest: dest,
				OnProgress: func(received, total int64) {
					if total <= 0 {
						return
					}
					percent := int(received * 100 / total)
					if percent/10 != lastPercent/10 {
						lastPercent = percent
						logger.Info("Downloading", "id", id, "percent", percent,
							"received", updater.FormatBytes(received), "total", updater.FormatBytes(total))
					}
				},
			})
			if err != nil {
				return fmt.Errorf("download %s: %w", id, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", res.Path, updater.FormatBytes(res.Size))
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "myle.toml", "Path to configuration file")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory relative destinations resolve into (default: user downloads dir)")
	cmd.Flags().StringVar(&id, "id", "", "Download id (default: generated)")
	cmd.Flags().IntVar(&maxRedirects, "max-redirects", downloads.DefaultMaxRedirects, "Maximum redirects to follow")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}
