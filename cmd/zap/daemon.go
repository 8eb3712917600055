package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/coxlong/zap/internal/eventlog"
	"github.com/coxlong/zap/internal/hotkeys"
	"github.com/coxlong/zap/internal/ipc"
	"github.com/coxlong/zap/internal/metrics"
	"github.com/coxlong/zap/internal/platform"
	"github.com/coxlong/zap/internal/pool"
	"github.com/coxlong/zap/internal/x11"
)

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/zap/config.yaml)")
	headless := fs.Bool("headless", false, "Keep windows in memory instead of on an X display")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: zap daemon [--path PATH] [--headless]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	cfg := res.Config
	log.Printf("Configuration loaded (%d file(s), %d hotkey(s))", len(res.Files), len(cfg.Hotkeys))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))

	events, err := eventlog.New(cfg.EventLogConfig())
	if err != nil {
		log.Printf("Warning: pool event log disabled: %v", err)
		events = nil
	}
	defer events.Close()

	var (
		host platform.Host
		conn *x11.Connection
	)
	if *headless {
		host = platform.NewMemoryHost()
		log.Println("Running headless; windows are kept in memory")
	} else {
		conn, err = x11.NewConnection(cfg.Display)
		if err != nil {
			log.Printf("Failed to connect to display: %v", err)
			return 1
		}
		defer conn.Close()
		host = platform.NewX11Host(conn, logger)
	}

	var manager *pool.Manager
	collector := metrics.NewCollector(func() (pool.State, bool) { return manager.PoolState() })
	manager = pool.NewManager(host, pool.Options{
		Logger:   logger,
		Recorder: pool.Recorders{events, collector},
	})
	if err := manager.Initialize(cfg.ToPoolConfig()); err != nil {
		log.Printf("Failed to initialize window pool: %v", err)
		return 1
	}
	defer manager.Destroy()

	ipcServer, err := ipc.NewServer(manager)
	if err != nil {
		log.Printf("Failed to create IPC server: %v", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		log.Printf("Failed to start IPC server: %v", err)
		return 1
	}
	defer ipcServer.Stop()

	if conn != nil {
		handler := hotkeys.NewHandler(conn.XUtil, manager, logger)
		if err := handler.RegisterAll(cfg.Hotkeys); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	log.Println("zap daemon started successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsListen != "" {
		g.Go(func() error {
			return collector.Serve(gctx, cfg.MetricsListen, logger)
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case sig := <-sigCh:
				if sig != syscall.SIGHUP {
					log.Println("Shutting down zap daemon...")
					cancel()
					return nil
				}
				// Pool settings are fixed for the daemon's lifetime.
				if _, err := loadConfig(*path); err != nil {
					log.Printf("Config reload failed: %v", err)
					continue
				}
				log.Println("Config is valid; restart the daemon to apply changes")
			}
		}
	})

	if conn != nil {
		go func() {
			<-gctx.Done()
			conn.Quit()
		}()
		log.Println("Entering event loop...")
		conn.EventLoop()
	} else {
		<-gctx.Done()
	}
	cancel()
	if err := g.Wait(); err != nil {
		log.Printf("zap daemon stopped: %v", err)
		return 1
	}
	return 0
}
