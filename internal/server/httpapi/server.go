// Package httpapi serves the pool over HTTP/JSON. Renew and Assign are open
// to consumers; the /api/accounts routes need a Bearer operator token.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/logging"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
	"github.com/dmitrijs2005/warrantypool/internal/server/services"
	"github.com/gorilla/mux"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	maxBodyBytes      = 1 << 20
)

type PoolService interface {
	Renew(ctx context.Context, warrantyKey string) (*services.RenewResult, error)
	Assign(ctx context.Context, consumerName, expireDate string) (*services.AssignResult, error)
}

type AccountService interface {
	Upload(ctx context.Context, req services.UploadRequest) (*services.UploadResult, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error)
	Clear(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPServer struct {
	address   string
	pool      PoolService
	accounts  AccountService
	store     Pinger
	logger    logging.Logger
	jwtSecret []byte
	// metrics is mounted at /metrics when set.
	metrics http.Handler
}

func NewHTTPServer(a string, l logging.Logger, pool PoolService, accounts AccountService, store Pinger, secretKey string, metrics http.Handler) *HTTPServer {
	return &HTTPServer{
		address:   a,
		logger:    l.With("module", "http_server"),
		pool:      pool,
		accounts:  accounts,
		store:     store,
		jwtSecret: []byte(secretKey),
		metrics:   metrics,
	}
}

// Handler builds the router.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/renew", s.handleRenew).Methods(http.MethodPost)
	api.HandleFunc("/assign", s.handleAssign).Methods(http.MethodPost)

	admin := api.PathPrefix("/accounts").Subrouter()
	admin.Use(s.requireOperator)
	admin.HandleFunc("", s.handleUpload).Methods(http.MethodPost)
	admin.HandleFunc("", s.handleList).Methods(http.MethodGet)
	admin.HandleFunc("/{id}", s.handleGet).Methods(http.MethodGet)
	admin.HandleFunc("/{id}", s.handleUpdate).Methods(http.MethodPatch)
	admin.HandleFunc("/{id}", s.handleDelete).Methods(http.MethodDelete)
	admin.HandleFunc("/{id}/clear", s.handleClear).Methods(http.MethodPost)

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
