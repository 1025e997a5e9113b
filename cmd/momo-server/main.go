package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"momoapi/internal/server"
	"momoapi/internal/shared"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

const drainTimeout = 5 * time.Second

var (
	configPath = flag.String("config", "", "optional TOML config file")
	host       = flag.String("host", "", "listen host (overrides HOST)")
	port       = flag.Int("port", 0, "listen port (overrides PORT)")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath, *host, *port)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "momo-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, host string, port int) error {
	cfg, err := shared.LoadServerConfig(configPath)
	if err != nil {
		return errors.Wrap(err, "config")
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}

	log, err := shared.NewLogger(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "logger")
	}
	defer func() { _ = log.Sync() }()

	metrics := server.NewMetrics()
	store, err := server.OpenRepository(cfg, log, metrics)
	if err != nil {
		return errors.Wrapf(err, "open %s store", cfg.StoreDriver)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnf("store close: %v", err)
		}
	}()

	api := &server.API{
		Store:       store,
		Credentials: shared.Credentials{Username: cfg.Username, Password: cfg.Password},
		Envelope:    cfg.Envelope,
		Log:         log,
		Metrics:     metrics,
	}

	srv := &http.Server{
		Handler:           server.NewRouter(api),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return errors.Wrapf(err, "listen %s", cfg.Addr())
	}
	ln = netutil.LimitListener(ln, cfg.MaxConns)

	printable := cfg.Host
	if printable == "127.0.0.1" || printable == "0.0.0.0" || printable == "" {
		printable = "localhost"
	}
	log.Infof("Starting server on http://%s ...", net.JoinHostPort(printable, strconv.Itoa(cfg.Port)))
	log.Infof("store: %s", describeStore(cfg))

	return serve(ctx, srv, ln, drainTimeout, log)
}

// serve runs srv on ln until ctx is done, then waits up to drain for
// in-flight requests before returning. The store stays open until then.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, drain time.Duration, log *zap.SugaredLogger) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}()

	// Serve returns as soon as Shutdown starts, not when it finishes.
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	<-done
	log.Info("server stopped")
	return nil
}

func describeStore(cfg *shared.ServerConfig) string {
	switch cfg.StoreDriver {
	case shared.DriverSQLite:
		return "sqlite " + cfg.DBPath
	case shared.DriverMemory:
		return "memory"
	default:
		return "json " + cfg.DataFile
	}
}
