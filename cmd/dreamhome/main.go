package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dreamhome/internal/backend"
	"dreamhome/internal/config"
	"dreamhome/internal/http/handlers"
	applog "dreamhome/internal/log"
	"dreamhome/internal/repos"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	rootCmd := &cobra.Command{
		Use:   "dreamhome",
		Short: "Dream Home listings web application",
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "dreamhome.yaml", "YAML config file (optional)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the web application",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "mockapi",
			Short: "Run the development listing/auth/chat API",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				return mockAPI(cmd.Context(), cfg)
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging sends both the event lines and slog output to stdout and,
// when configured, the log file.
func setupLogging(cfg config.Config) *slog.Logger {
	var w io.Writer = os.Stdout
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			w = io.MultiWriter(os.Stdout, f)
			log.SetOutput(w)
		}
	}
	logger := applog.NewLogger(applog.Options{Writer: w, Level: cfg.LogLevel, Color: cfg.LogColor && cfg.LogFile == ""})
	slog.SetDefault(logger)
	return logger
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := setupLogging(cfg)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	deps, err := handlers.NewDeps(db, cfg, logger, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return err
	}
	go deps.Sessions.RunSweeper(ctx, time.Minute, cfg.SessionIdle)

	engine := handlers.NewEngine("./web/templates")
	engine.Reload(true)
	app := handlers.NewApp(handlers.AppOptions{
		Views:        engine,
		StaticDir:    "./web/static",
		MediaDir:     cfg.MediaDir,
		BodyLimit:    cfg.BodyLimit(),
		SecureCookie: cfg.SecureCookie,
	}, deps)

	logger.Info("web app listening", "port", cfg.Port, "api", cfg.APIBaseURL)
	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()
	return app.Listen(":" + cfg.Port)
}

func mockAPI(ctx context.Context, cfg config.Config) error {
	logger := setupLogging(cfg)

	db, err := repos.OpenDB(cfg.Backend.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := backend.New(db, backend.Config{
		JWTSecret: cfg.Backend.JWTSecret,
		MediaDir:  cfg.MediaDir,
		MaxImages: cfg.MaxImages,
		BodyLimit: cfg.BodyLimit(),
	})
	if err != nil {
		return err
	}
	app := srv.App()
	logger.Info("mock API listening", "port", cfg.Backend.Port)
	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()
	return app.Listen(":" + cfg.Backend.Port)
}
