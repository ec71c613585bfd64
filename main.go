package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/myle-app/myle/cmd"
	"github.com/myle-app/myle/internal/api"
	"github.com/myle-app/myle/internal/archive"
	"github.com/myle-app/myle/internal/config"
	"github.com/myle-app/myle/internal/downloads"
	"github.com/myle-app/myle/internal/events"
	"github.com/myle-app/myle/internal/logging"
	"github.com/myle-app/myle/internal/metrics"
	"github.com/myle-app/myle/internal/process"
	"github.com/myle-app/myle/internal/sparkle"
	"github.com/myle-app/myle/internal/transport"
	"github.com/myle-app/myle/internal/updater"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"myle.toml"`

	// Server settings
	Port               string `help:"Address to listen on" short:"p" default:"127.0.0.1:8090" toml:"server.port" env:"SERVER_PORT"`
	ServerAllowOrigins string `help:"Comma-separated CORS origins, * for any" default:"*" toml:"server.allow_origins" env:"SERVER_ALLOW_ORIGINS"`

	// Download engine settings
	DownloadsDir          string `help:"Directory relative download destinations resolve into" toml:"downloads.dir" env:"DOWNLOADS_DIR"`
	DownloadsMaxRedirects int    `help:"Maximum redirects followed per download" default:"10" toml:"downloads.max_redirects" env:"DOWNLOADS_MAX_REDIRECTS"`

	// Updater settings
	UpdatesRepository   string `help:"Release repository (owner/name)" default:"thomasthanos/Make_Your_Life_Easier.A.E" toml:"updates.repository" env:"UPDATES_REPOSITORY"`
	UpdatesAPIURL       string `help:"Release API root" default:"https://api.github.com" toml:"updates.api_url" env:"UPDATES_API_URL"`
	UpdatesDisabled     bool   `help:"Disable the updater" default:"false" toml:"updates.disabled" env:"UPDATES_DISABLED"`
	UpdatesAutoDownload bool   `help:"Download updates as soon as they are found" default:"true" toml:"updates.auto_download" env:"UPDATES_AUTO_DOWNLOAD"`
	UpdatesAutoInstall  bool   `help:"Install downloaded updates without asking" default:"true" toml:"updates.auto_install" env:"UPDATES_AUTO_INSTALL"`
	UpdatesMode         string `help:"Installation mode (auto, portable, installed)" default:"auto" toml:"updates.mode" env:"UPDATES_MODE"`
	UpdatesUserDataDir  string `help:"Directory for the post-update manifest" toml:"updates.user_data_dir" env:"UPDATES_USER_DATA_DIR"`
	NoUpdater           bool   `help:"Disable the updater for this run" default:"false"`

	// Sparkle settings
	SparkleDir        string `help:"Sparkle working directory" toml:"sparkle.dir" env:"SPARKLE_DIR"`
	SparkleRepository string `help:"Sparkle release repository" default:"parcoil/sparkle" toml:"sparkle.repository" env:"SPARKLE_REPOSITORY"`

	// Auth settings, both must be set to enable basic auth
	AuthUsername string `help:"Basic auth username" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDownloads string `help:"Download engine logging level" default:"info" toml:"logging.downloads" env:"LOGGING_DOWNLOADS"`
	LoggingUpdater   string `help:"Updater logging level" default:"info" toml:"logging.updater" env:"LOGGING_UPDATER"`
	LoggingArchive   string `help:"Archive extraction logging level" default:"info" toml:"logging.archive" env:"LOGGING_ARCHIVE"`
	LoggingSparkle   string `help:"Sparkle resolver logging level" default:"info" toml:"logging.sparkle" env:"LOGGING_SPARKLE"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP      string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"downloads": o.LoggingDownloads,
			"updater":   o.LoggingUpdater,
			"archive":   o.LoggingArchive,
			"sparkle":   o.LoggingSparkle,
			"api":       o.LoggingAPI,
			"http":      o.LoggingHTTP,
		},
	}
}

// updaterDisabled resolves the updates-disabled switch from flag, config and environment.
func (o *Options) updaterDisabled() (bool, string) {
	if o.NoUpdater {
		return true, "disabled by --no-updater"
	}
	if disabled, reason := config.UpdatesDisabledByEnv(); disabled {
		return true, reason
	}
	if o.UpdatesDisabled {
		return true, "disabled by configuration"
	}
	return false, ""
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(api.LogEvent(entry))
		})

		// The engine follows redirects itself and bounds the wait for headers
		engine := downloads.New(downloads.Options{
			Dir:          opts.DownloadsDir,
			MaxRedirects: opts.DownloadsMaxRedirects,
			Client: transport.New(
				transport.WithoutRedirects(),
				transport.WithResponseHeaderTimeout(30*time.Second),
			),
			Sink:   eventBus,
			Logger: logging.GetLogger("downloads"),
		})

		releaseClient := transport.New(
			transport.WithAPIBaseURL(opts.UpdatesAPIURL),
			transport.WithTimeout(30*time.Second),
		)

		extractor := archive.NewExtractor("", engine, logging.GetLogger("archive"))
		sparkleResolver := sparkle.NewResolver(opts.SparkleDir, opts.SparkleRepository, releaseClient, logging.GetLogger("sparkle"))

		var shutdownOnce sync.Once
		var server *api.Server
		shutdown := func() {
			shutdownOnce.Do(func() {
				logger.Info("Shutting down")
				engine.CancelAll()
				engine.CleanupOnQuit()
				if server != nil {
					if stopErr := server.Stop(); stopErr != nil {
						logger.Error("Error stopping HTTP server", "error", stopErr)
					}
				}
			})
		}

		disabled, disabledReason := opts.updaterDisabled()
		updaterCacheDir := updater.DefaultCacheDir()
		updaterService, err := updater.NewService(&updater.Options{
			Feed:          updater.NewReleaseFeed(releaseClient, opts.UpdatesRepository),
			Downloader:    engine,
			Sink:          eventBus,
			Launcher:      process.NewLauncher(logging.GetLogger("updater")),
			Mode:          updater.ParseInstallMode(opts.UpdatesMode),
			CacheDir:      updaterCacheDir,
			UserDataDir:   opts.UpdatesUserDataDir,
			AutoDownload:  opts.UpdatesAutoDownload,
			ManualInstall: !opts.UpdatesAutoInstall,
			Quit: func() {
				shutdown()
				os.Exit(0)
			},
			Disabled:       disabled,
			DisabledReason: disabledReason,
		})
		if err != nil {
			logger.Error("Failed to create updater", "error", err)
			os.Exit(1)
		}

		server = api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			AllowOrigins:      api.ParseOrigins(opts.ServerAllowOrigins),
			EventBus:          eventBus,
			Downloads:         engine,
			Updater:           updaterService,
			Archives:          extractor,
			Sparkle:           sparkleResolver,
			PrometheusHandler: metrics.HTTPHandler(),
		})

		// Hot reload: logging levels and the updates switch. Flag and env switches stay authoritative.
		watcher := config.NewConfigWatcher(opts.Config, config.LoadRuntime, logger)
		watcher.OnReload(func(rt config.Runtime) {
			logging.Initialize(rt.Logging)
			if disabled {
				return
			}
			reason := ""
			if rt.UpdatesDisabled {
				reason = "disabled by configuration"
			}
			updaterService.SetDisabled(rt.UpdatesDisabled, reason)
		})

		hooks.OnStart(func() {
			updater.CleanCache(updaterCacheDir, logging.GetLogger("updater"))

			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Failed to start config watcher, hot-reload disabled", "error", watchErr)
			} else {
				defer func() { _ = watcher.Stop() }()
			}

			updaterService.BeginStartup()
			go func() {
				if _, checkErr := updaterService.CheckForUpdates(context.Background()); checkErr != nil {
					logger.Debug("Startup update check did not complete", "error", checkErr)
				}
			}()

			logger.Info("Starting HTTP server", "addr", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(shutdown)
	})

	cli.Root().AddCommand(cmd.CreateDownloadCmd())
	cli.Root().AddCommand(cmd.CreateExtractCmd())
	cli.Root().AddCommand(cmd.CreateCheckUpdateCmd())

	// Run the CLI
	cli.Run()
}
