package cmd

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/myle-app/myle/internal/transport"
	"github.com/myle-app/myle/internal/updater"
	"github.com/myle-app/myle/internal/version"
	"github.com/spf13/cobra"
)

// CreateCheckUpdateCmd creates the check-update command.
func CreateCheckUpdateCmd() *cobra.Command {
	var configFile string
	var repository string
	var apiURL string
	var mode string
	var current string
	var platform string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "check-update",
		Short: "Query the release feed and show the asset that would be installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			initLogging(configFile, logJSON)

			ctx, stop := signalContext()
			defer stop()

			client := transport.New(transport.WithAPIBaseURL(apiURL), transport.WithTimeout(30*time.Second))
			release, err := updater.NewReleaseFeed(client, repository).Latest(ctx)
			if err != nil {
				return fmt.Errorf("check for updates: %w", err)
			}

			installMode := updater.ParseInstallMode(mode)
			if installMode == "" {
				installMode = updater.DetectCurrentInstallMode()
			}
			selector := updater.AssetSelector{AppName: updater.DefaultAppName, Platform: platform}
			asset, found := selector.Select(installMode, release.Assets)

			printCheck(cmd.OutOrStdout(), current, release, installMode, asset, found)
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "myle.toml", "Path to configuration file")
	cmd.Flags().StringVar(&repository, "repository", updater.DefaultRepository, "Release repository (owner/name)")
	cmd.Flags().StringVar(&apiURL, "api-url", transport.DefaultAPIBaseURL, "Release API root")
	cmd.Flags().StringVar(&mode, "mode", "auto", "Installation mode (auto, portable, installed)")
	cmd.Flags().StringVar(&current, "current", version.Version, "Version to compare against")
	cmd.Flags().StringVar(&platform, "platform", runtime.GOOS, "Platform whose assets are considered")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

func printCheck(w io.Writer, current string, release *transport.Release, mode updater.InstallMode,
	asset transport.ReleaseAsset, found bool,
) {
	fmt.Fprintf(w, "Current version: %s\n", current)
	fmt.Fprintf(w, "Latest release:  %s (%s)\n", release.Version(), release.TagName)
	fmt.Fprintf(w, "Install mode:    %s\n", mode)

	if !version.IsNewer(release.Version(), current) {
		fmt.Fprintln(w, "You are running the latest version")
		return
	}
	if !found {
		fmt.Fprintf(w, "No suitable asset found, download manually from %s\n", release.HTMLURL)
		return
	}
	fmt.Fprintf(w, "Update asset:    %s (%s)\n", asset.Name, updater.FormatBytes(asset.Size))
	fmt.Fprintf(w, "URL:             %s\n", asset.BrowserDownloadURL)
}
