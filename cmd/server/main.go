package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/julienschmidt/httprouter"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"ninety-nine-go/config"
	"ninety-nine-go/internal/auth"
	"ninety-nine-go/internal/game"
	awsinfra "ninety-nine-go/internal/infrastructure/aws"
	"ninety-nine-go/internal/infrastructure/aws/dynamodb"
	"ninety-nine-go/internal/migrations"
	"ninety-nine-go/internal/notify"
	"ninety-nine-go/internal/server"
	"ninety-nine-go/internal/statistics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := server.NewLogger(stdout, cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	// --- Postgres ---
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db.DB); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to postgres")

	checks := map[string]server.Checker{
		"postgres": server.CheckFunc(db.PingContext),
	}

	// --- Stores ---
	var store game.GameStore = game.NewPostgresStore(db)
	if cfg.ArchiveEnabled() {
		awsCfg, err := awsinfra.NewAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return fmt.Errorf("loading aws config: %w", err)
		}
		archive := dynamodb.NewArchiveStore(awsCfg.DynamoDB, cfg.ArchiveTable)
		if err := archive.CreateTable(ctx); err != nil {
			return fmt.Errorf("preparing archive table: %w", err)
		}
		store = game.NewMultiStore(store, func(_ int, err error) {
			logger.Error("failed to archive game", "error", err)
		}, archive)
		logger.Info("archiving completed games", "table", cfg.ArchiveTable, "region", cfg.AWSRegion)
	}

	// --- Session ---
	session := game.NewSession(store, logger, game.WithEventBuffer(cfg.EventBuffer))
	broadcaster := game.NewBroadcaster(cfg.EventBuffer)

	var mailer *notify.Mailer
	if cfg.MailEnabled() {
		sender, err := notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		if err != nil {
			return fmt.Errorf("creating mail sender: %w", err)
		}
		mailer = notify.NewMailer(sender, cfg.MailFrom, cfg.NotifyEmail, logger)
	}

	// --- HTTP ---
	router := httprouter.New()
	game.NewHandler(session, broadcaster, logger, cfg.AllowedOrigins).Register(router)
	statistics.NewHandler(store, logger).Register(router)

	var api http.Handler = router
	if cfg.RequireAuth {
		api = auth.RequireAuth(router)
	}

	health := httprouter.New()
	server.NewHealthHandler(logger, checks).Register(health)

	mux := http.NewServeMux()
	mux.Handle("/healthz", health)
	mux.Handle("/", api)

	verifier := auth.NewVerifier([]byte(cfg.JWTSecret))
	handler := server.Chain(mux,
		server.Recoverer(logger),
		server.RequestLogger(logger),
		verifier.Middleware,
	)
	srv := server.New(":"+strconv.Itoa(cfg.Port), handler, logger)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		broadcaster.Run(gctx, session.Events())
		return nil
	})

	if mailer != nil {
		events, unsubscribe := broadcaster.Subscribe()
		g.Go(func() error {
			defer unsubscribe()
			mailer.Run(gctx, events)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := session.Close(shutdownCtx); err != nil {
			return fmt.Errorf("flushing pending saves: %w", err)
		}
		return nil
	})

	return g.Wait()
}
