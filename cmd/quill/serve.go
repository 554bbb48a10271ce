package main

import (
	"github.com/spf13/cobra"

	"github.com/quillform/quill/internal/backend"
	"github.com/quillform/quill/internal/bridge"
	"github.com/quillform/quill/internal/config"
	"github.com/quillform/quill/internal/gentool"
	"github.com/quillform/quill/internal/home"
	"github.com/quillform/quill/internal/hostinfo"
	"github.com/quillform/quill/internal/providers"
	"github.com/quillform/quill/internal/runlog"
	"github.com/quillform/quill/internal/status"
	"github.com/quillform/quill/internal/svcctx"
	"github.com/quillform/quill/internal/tools"
	"github.com/quillform/quill/version"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tool dispatch bridge",
	Long: `Start the loopback tool dispatch bridge.

The bridge binds to 127.0.0.1 and serves a single route, POST /tool, for
the browser layer. Configuration is hot-reloaded on change; provider
settings apply to new runs without a restart.

Examples:
  quill serve               # Listen on the configured port (default 8716)
  quill serve --port 9000   # Listen on a custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		logger := newLogger(cfg.Log)
		logger.Info("starting quill", "version", version.GitRelease, "home", h.Path())

		// Providers rebuild on config change; in-flight runs keep the
		// provider they started with.
		registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
		registry.SetLogger(logger.With("component", "providers"))
		mgr.OnChange(func(c *config.Config) {
			logger.Info("config changed, reloading providers")
			registry.Reload(c.ToProviderRegistryConfig())
		})
		mgr.WatchConfig()

		toolReg := tools.NewRegistry()
		for _, t := range tools.Builtin() {
			toolReg.MustRegister(t)
		}
		toolReg.MustRegister(gentool.Tool())
		toolReg.MustRegister(hostinfo.Tool())

		var backendClient *backend.Client
		if cfg.Backend.BaseURL != "" {
			backendLogger := logger.With("component", "backend")
			var headers backend.HeaderSource
			if token := config.ResolveEnvVars(cfg.Backend.AuthToken); token != "" {
				headers = backend.BearerToken(token)
			}
			backendClient = backend.NewClient(
				cfg.Backend.BaseURL, headers, backend.NewExecutor(backendLogger), backendLogger,
			)

			// Account check is informational; the bridge serves local
			// tools either way.
			go func() {
				account, err := backendClient.FetchAccount(ctx)
				if err != nil {
					logger.Warn("backend account check failed", "error", err)
					return
				}
				logger.Info("backend account",
					"email", account.Email,
					"plan", account.Plan,
					"runs_remaining", account.RunsRemaining,
				)
			}()
		}

		services := &svcctx.Services{
			Logger:    logger,
			Config:    mgr,
			Home:      h,
			Tools:     toolReg,
			Backend:   backendClient,
			Providers: registry,
			Runs:      runlog.NewStore(h.RunsPath()),
			Status:    status.NewLogger(logger),
		}

		port := cfg.Bridge.Port
		if servePort != "" {
			port = servePort
		}

		srv, err := bridge.New(bridge.Config{
			Port:         port,
			MaxBodyBytes: cfg.Bridge.MaxBodyBytes,
			Status:       status.NewLogger(logger),
			Logger:       logger.With("component", "bridge"),
		}, svcctx.WrapExecutor(toolReg, services))
		if err != nil {
			return err
		}

		// Start blocks until shutdown
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default: from config)")

	rootCmd.AddCommand(serveCmd)
}
