package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"beelogical.com/chat-portal/internal/api"
	"beelogical.com/chat-portal/internal/auth"
	"beelogical.com/chat-portal/internal/config"
	"beelogical.com/chat-portal/internal/core"
	"beelogical.com/chat-portal/internal/screens"
	"beelogical.com/chat-portal/internal/tui"
)

type flags struct {
	backendURL string
	port       string
	logLevel   string
	logFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "beechat",
		Short:         "Bee Logical chat portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), f)
		},
	}
	root.PersistentFlags().StringVar(&f.backendURL, "backend-url", "", "backend base URL (overrides BACKEND_URL)")
	root.PersistentFlags().StringVar(&f.port, "port", "", "portal listen port (overrides HTTP_PORT)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web portal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), f)
		},
	}

	term := &cobra.Command{
		Use:   "tui [return-url]",
		Short: "Chat from the terminal",
		Long: "Chat from the terminal. Pass the URL the login flow redirected to, " +
			"or log in from the entry screen.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(f, args)
		},
	}
	term.Flags().StringVar(&f.logFile, "log-file", "", "write logs to this file instead of discarding them")

	root.AddCommand(serve, term)
	return root
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig(f *flags) (config.Config, error) {
	cfg := config.Load()
	if f.backendURL != "" {
		cfg.BackendURL = strings.TrimRight(f.backendURL, "/")
	}
	if f.port != "" {
		cfg.HTTPPort = f.port
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, errors.Wrap(err, "load config")
	}
	config.AppConfig = cfg
	return cfg, nil
}

func setupLogging(cfg config.Config, out io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
}

func runServe(ctx context.Context, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	setupLogging(cfg, os.Stderr)
	log.Debug().Str("backend_url", cfg.BackendURL).Msg("service starting in debug mode")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := core.NewBackendClient(cfg.BackendURL, cfg.BackendTimeout)
	registry := screens.NewRegistry(backend, screens.Options{
		IdleTTL:       cfg.ScreenIdleTTL,
		EvictInterval: cfg.ScreenEvictInterval,
	})
	limiter := api.NewRateLimiter(cfg.RateLimitPerMinute)

	apiHandler, err := api.NewAPIHandler(registry, backend.LoginURL())
	if err != nil {
		return err
	}

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           api.NewRouter(apiHandler, limiter),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Left unset: /ask blocks until the backend answers and has no deadline.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	registry.StartEvictionLoop(egCtx)
	limiter.StartJanitor(egCtx)

	eg.Go(func() error {
		log.Info().Str("addr", serverAddr).Str("backend_url", cfg.BackendURL).Msg("starting chat portal")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrapf(err, "listen on %s", serverAddr)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		log.Info().Msg("server exiting gracefully")
		return nil
	})

	return eg.Wait()
}

func runTUI(f *flags, args []string) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	// The terminal belongs to the program; logs go to a file or nowhere.
	if f.logFile != "" {
		file, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer file.Close()
		setupLogging(cfg, file)
	} else {
		log.Logger = zerolog.Nop()
	}

	opts := tui.Options{CallbackAddr: "127.0.0.1:" + cfg.HTTPPort}
	if len(args) == 1 {
		identity, err := auth.FromURL(args[0])
		if err != nil {
			return err
		}
		opts.Identity = &identity
	}

	backend := core.NewBackendClient(cfg.BackendURL, cfg.BackendTimeout)
	return tui.Run(backend, opts)
}
