package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prepdeck/config"
	"prepdeck/dblayer"
	"prepdeck/expopush"
	"prepdeck/healthz"
	"prepdeck/notifier"

	"cloud.google.com/go/firestore"
	"github.com/golang/glog"
	"github.com/joho/godotenv"
)

var (
	listen      = flag.String("listen", "127.0.0.1:8000", "Server address:port for the write-event endpoint.")
	debugListen = flag.String("debug-listen", "127.0.0.1:8001", "Server address:port for debug endpoint.")
	dataProject = flag.String("data-project", "", "GCP project that contains the application state.")
	configPath  = flag.String("config", "", "Path to optional YAML settings file.")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	glog.Infof("flags:")
	glog.Infof("listen: %v", *listen)
	glog.Infof("debug-listen: %v", *debugListen)
	glog.Infof("data-project: %v", *dataProject)
	glog.Infof("config: %v", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := do(ctx); err != nil {
		glog.Exitf("Error: %v", err)
	}
}

func do(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("while loading config: %w", err)
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

	n := notifier.New(dblayer.New(fstore), expopush.New(cfg.PushEndpoint))

	serveMux := http.NewServeMux()
	serveMux.Handle("/events/schedules", notifier.NewHandler(n))
	server := &http.Server{
		Addr:    *listen,
		Handler: serveMux,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := debugServer.ListenAndServe(); err != nil {
			glog.Fatalf("Debug server died: %v", err)
		}
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil {
			glog.Fatalf("Event server died: %v", err)
		}
	}()

	ready.SetReady()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh

	glog.Flush()

	return nil
}
