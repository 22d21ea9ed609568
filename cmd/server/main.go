package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/me/blogd/internal/audit"
	"github.com/me/blogd/internal/auth"
	"github.com/me/blogd/internal/config"
	"github.com/me/blogd/internal/logging"
	"github.com/me/blogd/internal/server"
	"github.com/me/blogd/internal/session"
	"github.com/me/blogd/internal/store"
)

func main() {
	flagCfg := config.DefaultServerConfig()

	flag.StringVar(&flagCfg.Addr, "addr", flagCfg.Addr, "Listen address")
	flag.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&flagCfg.LogFormat, "log-format", flagCfg.LogFormat, "Log format (text, json)")
	flag.StringVar(&flagCfg.DBPath, "db", flagCfg.DBPath, "Database path (default blogd.db)")
	flag.StringVar(&flagCfg.SecurityLog, "security-log", flagCfg.SecurityLog, "File path for the JSON security log (stderr only if empty)")
	flag.StringVar(&flagCfg.SessionBackend, "session-backend", flagCfg.SessionBackend, "Session backend: sqlite, redis")
	flag.StringVar(&flagCfg.RedisAddr, "redis-addr", flagCfg.RedisAddr, "Redis address when --session-backend=redis")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	configFile := flag.String("config", "", "Path to YAML server config file (flags override it)")

	flag.Parse()

	cfg := flagCfg
	if *configFile != "" {
		fileCfg, err := config.Load(*configFile, config.DefaultServerConfig())
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = fileCfg
		// Flags set on the command line win over the file.
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "addr":
				cfg.Addr = flagCfg.Addr
			case "log-level":
				cfg.LogLevel = flagCfg.LogLevel
			case "log-format":
				cfg.LogFormat = flagCfg.LogFormat
			case "db":
				cfg.DBPath = flagCfg.DBPath
			case "security-log":
				cfg.SecurityLog = flagCfg.SecurityLog
			case "session-backend":
				cfg.SessionBackend = flagCfg.SessionBackend
			case "redis-addr":
				cfg.RedisAddr = flagCfg.RedisAddr
			}
		})
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "blogd.db"
	}

	// Open store and run migrations.
	pool := store.PoolConfig{
		MaxConns:    cfg.MaxDBConns,
		AcquireWait: time.Duration(cfg.DBAcquireWaitMS) * time.Millisecond,
	}
	st, err := store.NewSQLiteStore(dbPath, pool, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", dbPath)

	// Pick the session backend.
	var sessionStore session.Store
	switch cfg.SessionBackend {
	case "", "sqlite":
		sessionStore = session.NewSQLStore(st)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect redis %s: %v\n", cfg.RedisAddr, err)
			os.Exit(1)
		}
		defer client.Close()
		sessionStore = session.NewRedisStore(client, logger)
		logger.Info("redis sessions enabled", "addr", cfg.RedisAddr)
	default:
		fmt.Fprintf(os.Stderr, "unknown session backend %q\n", cfg.SessionBackend)
		os.Exit(1)
	}
	sessions := session.NewManager(sessionStore)

	// The security log goes to the database and, as structured JSON, to
	// stderr plus the optional log file.
	secLogger, secCloser, err := logging.NewSecurityLogger(cfg.SecurityLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open security log: %v\n", err)
		os.Exit(1)
	}
	defer secCloser.Close()

	auditLog := audit.New(audit.MultiSink{
		audit.NewStoreSink(st),
		audit.NewLogSink(secLogger),
	}, 256, logger)
	defer auditLog.Close()

	hasher := auth.NewHasher(auth.DefaultCost, 0)

	srv := server.New(cfg, st, sessions, hasher, auditLog, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reap expired sessions in the background.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := sessions.Cleanup(ctx)
				if err != nil {
					logger.Error("session cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
