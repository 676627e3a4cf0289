package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/herohuhu666/wanwu/internal/adapters/db/memory"
	sqliteadapter "github.com/herohuhu666/wanwu/internal/adapters/db/sqlite"
	httpadapter "github.com/herohuhu666/wanwu/internal/adapters/http"
	"github.com/herohuhu666/wanwu/internal/adapters/objectstore"
	"github.com/herohuhu666/wanwu/internal/adapters/qwen"
	rpcadapter "github.com/herohuhu666/wanwu/internal/adapters/rpcjson"
	"github.com/herohuhu666/wanwu/internal/application"
	"github.com/herohuhu666/wanwu/internal/config"
	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/herohuhu666/wanwu/internal/logger"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "wanwu",
		Usage: "Destiny profile server and CLI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "transport", Usage: "client transport: uds or http"},
			&cli.StringFlag{Name: "server", Usage: "HTTP base URL for the http transport"},
			&cli.StringFlag{Name: "socket", Usage: "JSON-RPC unix socket for the uds transport"},
		},
		Commands: []*cli.Command{
			serverCommand(),
			configCommand(),
			profileCommand(),
			meritCommand(),
			dailyCommand(),
			insightCommand(),
			ritualCommand(),
			archivesCommand(),
			hexagramCommand(),
			exportCommand(),
			guardianCommand(),
			energyCommand(),
			destinyCommand(),
			oracleCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the HTTP API and JSON-RPC socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address (WANWU_HTTP_ADDR)"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path (WANWU_RPC_SOCKET)"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path (WANWU_DB_PATH)"},
			&cli.StringFlag{Name: "log-level", Usage: "zerolog level (WANWU_LOG_LEVEL)"},
			&cli.BoolFlag{Name: "ephemeral", Usage: "keep state in memory only"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.New(func(cfg *config.Config) {
				if c.IsSet("addr") {
					cfg.HTTPAddr = c.String("addr")
				}
				if c.IsSet("rpc-socket") {
					cfg.RPCSocket = c.String("rpc-socket")
				}
				if c.IsSet("db-path") {
					cfg.DBPath = c.String("db-path")
				}
				if c.IsSet("log-level") {
					cfg.LogLevel = c.String("log-level")
				}
			})
			if err != nil {
				return err
			}
			return runServer(ctx, cfg, c.Bool("ephemeral"))
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, ephemeral bool) error {
	log := logger.New("wanwu", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, ephemeral, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	profile, err := application.NewProfileService(ctx, repo,
		application.WithNamespace(cfg.Namespace),
		application.WithLocation(cfg.Location()),
		application.WithLogger(log),
	)
	if err != nil {
		return err
	}

	store, uploadsDir, err := openObjectStore(cfg)
	if err != nil {
		return err
	}
	completer := qwen.New(qwen.Config{
		APIKey:      cfg.QwenAPIKey,
		BaseURL:     cfg.QwenBaseURL,
		Model:       cfg.QwenModel,
		VisionModel: cfg.QwenVisionModel,
		Timeout:     cfg.QwenTimeout,
	})
	if cfg.QwenAPIKey == "" {
		log.Warn().Msg("WANWU_QWEN_API_KEY is not set, oracle endpoints will return fallbacks")
	}

	services := application.Services{
		Profile: profile,
		Ritual: application.NewRitualService(profile,
			application.WithAutoDelay(cfg.RitualAutoDelay),
			application.WithRitualLogger(log),
		),
		Oracle: application.NewOracleService(completer, store, log),
	}

	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, services, log)
	if err != nil {
		return err
	}
	log.Info().Str("socket", cfg.RPCSocket).Msg("json-rpc listening")

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpadapter.NewRouter(services, log, uploadsDir),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rpcErr := rpcSrv.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return rpcErr
	})
	return g.Wait()
}

func openRepository(ctx context.Context, cfg *config.Config, ephemeral bool, log zerolog.Logger) (domain.StateRepository, func(), error) {
	if ephemeral {
		return memory.NewRepository(), func() {}, nil
	}
	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		_ = sqliteadapter.Close(db)
		return nil, nil, err
	}
	version, err := sqliteadapter.SchemaVersion(ctx, db)
	if err != nil {
		_ = sqliteadapter.Close(db)
		return nil, nil, err
	}
	log.Info().Str("path", cfg.DBPath).Int64("schema_version", version).Msg("state database ready")
	return sqliteadapter.NewStateRepository(db), func() { _ = sqliteadapter.Close(db) }, nil
}

// openObjectStore also returns the directory to serve under /uploads, if any.
func openObjectStore(cfg *config.Config) (domain.ObjectStore, string, error) {
	if cfg.StorageDriver == "http" {
		return objectstore.NewBucketStore(objectstore.BucketConfig{
			Endpoint:  cfg.StorageEndpoint,
			Bucket:    cfg.StorageBucket,
			Token:     cfg.StorageToken,
			PublicURL: cfg.StoragePublicURL,
			Timeout:   cfg.QwenTimeout,
		}), "", nil
	}
	store, err := objectstore.NewDirStore(cfg.StorageDir, cfg.StoragePublicURL)
	if err != nil {
		return nil, "", err
	}
	return store, store.Root(), nil
}

