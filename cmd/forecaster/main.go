package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prepdeck/config"
	"prepdeck/dblayer"
	"prepdeck/forecast"
	"prepdeck/healthz"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"
)

var (
	listen        = flag.String("listen", "127.0.0.1:8000", "Server address:port for the manual-trigger endpoint.")
	debugListen   = flag.String("debug-listen", "127.0.0.1:8001", "Server address:port for debug endpoint.")
	recheckPeriod = flag.Duration("recheck-period", 24*time.Hour, "Time between estimation passes")
	dataProject   = flag.String("data-project", "", "GCP project that contains the application state.")
	configPath    = flag.String("config", "", "Path to optional YAML settings file.")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	slog.Info("Starting up")
	slog.Info(
		"Flags",
		slog.String("listen", *listen),
		slog.String("debug-listen", *debugListen),
		slog.Duration("recheck-period", *recheckPeriod),
		slog.String("data-project", *dataProject),
		slog.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := do(ctx); err != nil {
		slog.ErrorContext(ctx, "Error", slog.Any("err", err))
		os.Exit(255)
	}
}

func do(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("while loading config: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	fstore, err := firestore.NewClient(ctx, *dataProject)
	if err != nil {
		return fmt.Errorf("while creating FireStore client: %w", err)
	}

	ready := healthz.NewGated()

	debugServeMux := http.NewServeMux()
	debugServeMux.Handle("/healthz", healthz.New())
	debugServeMux.Handle("/readyz", ready)
	debugServeMux.HandleFunc("/debug/pprof/", pprof.Index)
	debugServeMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugServeMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugServeMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugServeMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	debugServer := &http.Server{
		Addr:    *debugListen,
		Handler: debugServeMux,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	estimator := forecast.New(dblayer.New(fstore), loc, *recheckPeriod)

	serveMux := http.NewServeMux()
	serveMux.Handle("/compute", forecast.NewHandler(estimator))
	server := &http.Server{
		Addr:    *listen,
		Handler: serveMux,

		// The manual trigger runs a full estimation pass inline, so
		// it gets a generous write timeout.
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   5 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := debugServer.ListenAndServe(); err != nil {
			slog.ErrorContext(ctx, "Debug server died", slog.Any("err", err))
			os.Exit(255)
		}
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil {
			slog.ErrorContext(ctx, "Trigger server died", slog.Any("err", err))
			os.Exit(255)
		}
	}()

	go func() {
		estimator.Run(ctx)
	}()

	ready.SetReady()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh

	return nil
}
