// Package server initializes and runs the ledger service: it opens the
// database pool, applies migrations, wires the services into the tool
// registry and serves it over gRPC and HTTP until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/ledgerd/internal/logging"
	"github.com/dmitrijs2005/ledgerd/internal/server/auth"
	"github.com/dmitrijs2005/ledgerd/internal/server/config"
	"github.com/dmitrijs2005/ledgerd/internal/server/httpapi"
	"github.com/dmitrijs2005/ledgerd/internal/server/mailer"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ledgerd/internal/server/services"
	"github.com/dmitrijs2005/ledgerd/internal/server/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/ledgerd/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	tools    *tools.Registry
	registry *prometheus.Registry
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogBackend)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := repomanager.OpenDB(c.DatabaseDSN, c.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(db, "ledger"))

	tokens := auth.NewTokenService(c.SecretKey, c.TokenValidityDuration)
	passwords := auth.NewPasswordPolicy()
	mail := mailer.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.FromEmail)

	svc := tools.Services{
		Gate:       services.NewGate(db, rm, tokens),
		Users:      services.NewUserService(db, rm, tokens, passwords),
		Challenges: services.NewChallengeService(db, rm, passwords, mail, logger),
		Records:    services.NewRecordService(rm),
		Reports:    services.NewReportService(rm),
		Exports:    services.NewExportService(rm, c),
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		tools:    tools.New(svc, logger, reg),
		registry: reg,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.tools)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(app.tools, app.logger, app.registry)
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, router)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
