package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modalnav/internal/config"
	"modalnav/internal/httpapi"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "modalnavd",
		Short:         "Modal-aware page server speaking the Inertia wire protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("MODALNAV_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultLevel := "info"
	if v := os.Getenv("MODALNAV_LOG_LEVEL"); v != "" {
		defaultLevel = v
	}

	var (
		addr     string
		cfgPath  string
		logLevel string
		version  string
	)
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo pages, modal routes and operational endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, cfgPath, logLevel, version)
		},
	}
	serve.Flags().StringVar(&addr, "addr", defaultAddr, "HTTP listen address, e.g. :8080")
	serve.Flags().StringVar(&cfgPath, "config", os.Getenv("MODALNAV_CONFIG"), "Optional config file (.yaml/.json/.toml)")
	serve.Flags().StringVar(&logLevel, "log-level", defaultLevel, "Log level: debug|info|warn|error")
	serve.Flags().StringVar(&version, "asset-version", "dev", "Asset version echoed in page envelopes")
	root.AddCommand(serve)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("modalnavd", buildVersion)
		},
	})

	return root
}

// buildVersion is stamped via -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

func runServe(addr, cfgPath, logLevel, version string) error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()

	var cfg config.Config
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
	}
	if cfg.Addr != "" {
		addr = cfg.Addr
	}
	if cfg.AssetVersion != "" {
		version = cfg.AssetVersion
	}

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)

	app := newDemoApp(cfg)
	mux := httpapi.NewMux(app, version)
	app.mount(mux)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("version", version).Msg("modalnavd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
