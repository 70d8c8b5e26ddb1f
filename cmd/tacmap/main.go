package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/tacmap/relay/internal/api"
	"github.com/tacmap/relay/internal/client"
	"github.com/tacmap/relay/internal/config"
	"github.com/tacmap/relay/internal/influx"
	"github.com/tacmap/relay/internal/logging"
	"github.com/tacmap/relay/internal/monitor"
	intotel "github.com/tacmap/relay/internal/otel"
	"github.com/tacmap/relay/internal/server"
	"github.com/tacmap/relay/internal/storage"
)

var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "host":
		err = runHost(os.Args[2:])
	case "join":
		err = runJoin(os.Args[2:])
	case "version":
		fmt.Printf("tacmap %s (built %s)\n", Version, BuildDate)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tacmap <command> [flags]

commands:
  host     open a session and serve participants
  join     connect to a running session
  version  print build information`)
}

// setupLogging wires the shared slog pipeline: file plus console, with
// optional Graylog and OTel sinks per config. The returned cleanup
// flushes and closes every sink.
func setupLogging() (*logging.SlogManager, *intotel.Provider, func(), error) {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("creating logs dir: %w", err)
	}

	logPath := logging.LogFilePath(logsDir, "tacmap", time.Now())
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	provider, err := intotel.New(intotel.Config{
		Enabled:     viper.GetBool("otel.enabled"),
		ServiceName: "tacmap",
		LogWriter:   logFile,
		Endpoint:    viper.GetString("otel.endpoint"),
		Insecure:    viper.GetBool("otel.insecure"),
	})
	if err != nil {
		logFile.Close()
		return nil, nil, nil, fmt.Errorf("initializing otel: %w", err)
	}

	graylogAddr := ""
	if viper.GetBool("graylog.enabled") {
		graylogAddr = viper.GetString("graylog.address")
	}

	manager := logging.NewSlogManager()
	manager.Setup(logFile, viper.GetString("logLevel"), graylogAddr, provider.LoggerProvider())

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Flush(ctx)
		_ = provider.Shutdown(ctx)
		_ = manager.Close()
		_ = logFile.Close()
	}
	return manager, provider, cleanup, nil
}

func runHost(args []string) error {
	fs := flag.NewFlagSet("host", flag.ExitOnError)
	configDir := fs.String("config", ".", "directory containing tacmap.cfg.json")
	sessionName := fs.String("session", "", "session name (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.Load(*configDir); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *sessionName != "" {
		viper.Set("session.name", *sessionName)
	}

	manager, _, cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()
	logger := manager.Logger()

	zlog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	store, err := storage.NewBackend(config.Archive(), zlog)
	if err != nil {
		return fmt.Errorf("building archive backend: %w", err)
	}
	if store != nil {
		if err := store.Init(); err != nil {
			return fmt.Errorf("initializing archive backend: %w", err)
		}
		defer store.Close()
	}

	srv, err := server.New(server.Options{
		SessionName: viper.GetString("session.name"),
		ChatHistory: viper.GetInt("chat.historySize"),
		Store:       store,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	var influxMgr *influx.Manager
	if viper.GetBool("influx.enabled") {
		backupPath := filepath.Join(viper.GetString("logsDir"), "influx_backup.gz")
		influxMgr = influx.NewManager(zlog, backupPath)
		if err := influxMgr.Connect(); err != nil {
			logger.Warn("influx unavailable, telemetry disabled", "error", err)
			influxMgr = nil
		} else {
			defer influxMgr.Close()
		}
	}

	mon := monitor.NewService(monitor.Dependencies{
		Stats:       srv,
		Logger:      logger,
		Influx:      influxMgr,
		SessionName: viper.GetString("session.name"),
		StatusDir:   viper.GetString("logsDir"),
	})
	if err := mon.Start(); err != nil {
		return err
	}
	defer mon.Stop()

	addr := fmt.Sprintf("%s:%d", viper.GetString("listen.host"), viper.GetInt("listen.port"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	started := time.Now()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		uploadArchive(store, logger, time.Since(started))
		return nil
	}
}

// uploadArchive pushes the exported session file to the review frontend
// when one is configured. Failures are logged, never fatal; the file
// stays on disk either way.
func uploadArchive(store storage.Backend, logger *slog.Logger, elapsed time.Duration) {
	if store == nil || !viper.GetBool("api.enabled") {
		return
	}
	exp, ok := store.(storage.Exportable)
	if !ok || exp.ExportedFilePath() == "" {
		return
	}

	c := api.New(viper.GetString("api.url"), viper.GetString("api.key"))
	meta := storage.UploadMetadata{
		SessionName:     viper.GetString("session.name"),
		DurationSeconds: elapsed.Seconds(),
		Tag:             viper.GetString("api.tag"),
	}
	if err := c.Upload(exp.ExportedFilePath(), meta); err != nil {
		logger.Error("session upload failed", "error", err, "file", exp.ExportedFilePath())
		return
	}
	logger.Info("session uploaded", "file", exp.ExportedFilePath())
}

func runJoin(args []string) error {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	rawURL := fs.String("url", "ws://localhost:3000/ws", "session websocket URL")
	asHost := fs.Bool("as-host", false, "connect with the host role")
	name := fs.String("name", "", "display name")
	pinColor := fs.String("color", "", "pin color as #RRGGBB")
	markerColor := fs.String("marker-color", "", "marker color as #RRGGBB")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	mirror := client.NewMirror(logger)
	conn, err := client.Dial(*rawURL, *asHost, mirror, logger)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if *name != "" || *pinColor != "" || *markerColor != "" {
		if err := conn.DeclareIdentity(*name, *pinColor, *markerColor); err != nil {
			return fmt.Errorf("declaring identity: %w", err)
		}
	}

	logger.Info("connected", "url", *rawURL, "host", *asHost)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("disconnecting",
		"pins", len(mirror.Pins()),
		"shapes", len(mirror.Shapes()),
		"chat", len(mirror.Chat()),
	)
	return nil
}
