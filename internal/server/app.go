// Package server wires the pool services to their store, probe, archive and
// transports, and runs the gRPC server, the HTTP server and the reconciler
// until the context is cancelled or a signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/warrantypool/internal/cryptox"
	"github.com/dmitrijs2005/warrantypool/internal/logging"
	"github.com/dmitrijs2005/warrantypool/internal/server/archive"
	"github.com/dmitrijs2005/warrantypool/internal/server/config"
	"github.com/dmitrijs2005/warrantypool/internal/server/httpapi"
	"github.com/dmitrijs2005/warrantypool/internal/server/metrics"
	"github.com/dmitrijs2005/warrantypool/internal/server/probe"
	"github.com/dmitrijs2005/warrantypool/internal/server/reconcile"
	"github.com/dmitrijs2005/warrantypool/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/warrantypool/internal/server/services"
	"github.com/dmitrijs2005/warrantypool/internal/server/store"

	gs "github.com/dmitrijs2005/warrantypool/internal/server/grpc"
)

var (
	openDB        = sql.Open
	newS3Archiver = func(ctx context.Context, cfg archive.S3Config) (archive.Archiver, error) {
		return archive.NewS3Archiver(ctx, cfg)
	}
	logOutput = io.Writer(os.Stdout)
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      store.Store
	db         *sql.DB
	pool       *services.PoolManager
	accounts   *services.AccountService
	reconciler *reconcile.Reconciler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(logOutput, c.LogLevel)

	loc, err := c.Location()
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}

	app := &App{config: c, logger: logger}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}

	prober, err := probe.NewHTTPProber(probe.Config{
		URL:                 c.ProbeURL,
		AuthenticatedPrefix: c.ProbeAuthenticatedPrefix,
		LoginMarker:         c.ProbeLoginMarker,
		Timeout:             c.ProbeTimeout,
		RatePerSecond:       c.ProbeRatePerSecond,
		Burst:               c.ProbeBurst,
	}, nil, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("probe init error: %w", err)
	}

	arch, err := app.initArchive(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.pool = services.NewPoolManager(app.store, prober, arch, logger, services.PoolConfig{
		ProbeConcurrency: c.ProbeConcurrency,
		LeaseTTL:         c.LeaseTTL,
		FallbackDays:     c.FallbackDays,
		Location:         loc,
	})
	app.accounts = services.NewAccountService(app.store, logger, c.WarrantyKeyLength)
	app.reconciler = reconcile.New(app.store, c.ReconcileSchedule, logger)

	return app, nil
}

func (app *App) initStore(ctx context.Context) error {

	if app.config.StoreKind == config.StoreMemory {
		app.logger.Warn(ctx, "Using in-memory store, data is lost on restart")
		app.store = store.NewMemoryStore()
		return nil
	}

	var sealer cryptox.Sealer = cryptox.NopSealer{}
	if app.config.SealPassphrase != "" {
		s, err := cryptox.NewAESSealer(app.config.SealPassphrase, app.config.SealSalt)
		if err != nil {
			return fmt.Errorf("sealer init error: %w", err)
		}
		sealer = s
	}

	db, err := openDB("pgx", app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	ps := store.NewPostgresStore(db, repomanager.NewPostgresRepositoryManager(sealer))
	if err := ps.Migrate(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("db migration error: %w", err)
	}

	app.db = db
	app.store = ps
	return nil
}

func (app *App) initArchive(ctx context.Context) (archive.Archiver, error) {

	if app.config.S3Bucket == "" {
		return archive.Nop{}, nil
	}

	a, err := newS3Archiver(ctx, archive.S3Config{
		Region:       app.config.S3Region,
		Endpoint:     app.config.S3BaseEndpoint,
		AccessKey:    app.config.S3RootUser,
		SecretKey:    app.config.S3RootPassword,
		Bucket:       app.config.S3Bucket,
		UsePathStyle: app.config.S3BaseEndpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("archive init error: %w", err)
	}
	return a, nil
}

// Close releases the database handle, if any.
func (app *App) Close() {
	if app.db != nil {
		_ = app.db.Close()
	}
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

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.pool, app.accounts, app.store, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.pool, app.accounts, app.store, app.config.SecretKey, metrics.Handler())

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startReconciler(ctx context.Context, cancelFunc context.CancelFunc) {

	if err := app.reconciler.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or one of
// the components fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreKind)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for _, start := range []func(context.Context, context.CancelFunc){
		app.startGRPCServer,
		app.startHTTPServer,
		app.startReconciler,
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}
