package api

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcleod/securevault/session"
	"github.com/jmcleod/securevault/storage"
	"github.com/jmcleod/securevault/vault"
)

const (
	// DefaultIdleTimeout ends client sessions after this long without a request.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultMaxLifetime ends client sessions this long after creation.
	DefaultMaxLifetime = 12 * time.Hour
)

// API serves a SecureLocalVault over HTTP. Every client session gets its own
// volatile store, and therefore its own session key, and its own namespace
// in the shared durable store.
type API struct {
	local       storage.Store
	namespace   string
	sessions    *session.Manager[*clientSession]
	limiter     *decryptRateLimiter
	monitor     *failureMonitor
	metrics     *opMetrics
	registry    *prometheus.Registry
	validate    *validator.Validate
	logger      *slog.Logger
	vaultOpts   []vault.Option
	alertFn     AlertFunc
	idleTimeout time.Duration
	maxLifetime time.Duration
}

// clientSession is the per-cookie state: the volatile store holding the
// session key and the vault bound to it.
type clientSession struct {
	id    string
	store *session.MemoryStore
	vault *vault.Vault
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger used by the API and by every
// session's vault. If not set, a default JSON logger writing to stderr is
// used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithVaultOptions passes options to the vault built for each session.
func WithVaultOptions(opts ...vault.Option) Option {
	return func(a *API) {
		a.vaultOpts = append(a.vaultOpts, opts...)
	}
}

// WithIdleTimeout sets how long a client session may sit unused.
func WithIdleTimeout(d time.Duration) Option {
	return func(a *API) {
		a.idleTimeout = d
	}
}

// WithMaxLifetime caps the absolute age of a client session.
func WithMaxLifetime(d time.Duration) Option {
	return func(a *API) {
		a.maxLifetime = d
	}
}

// WithAlertFunc sets the callback fired on failure spikes. The default logs
// the alert at warn level.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithRegistry registers the API's collectors on reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *API) {
		a.registry = reg
	}
}

// New creates a new API instance backed by the durable store local.
func New(local storage.Store, opts ...Option) (*API, error) {
	if local == nil {
		return nil, errors.New("api: durable store is required")
	}
	a := &API{
		local:       local,
		limiter:     newDecryptRateLimiter(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		idleTimeout: DefaultIdleTimeout,
		maxLifetime: DefaultMaxLifetime,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	if a.alertFn == nil {
		a.alertFn = logAlert(a.logger)
	}

	// Reject bad vault options up front rather than on a client's first request.
	probe, err := vault.New(local, session.NewMemoryStore(), a.vaultOpts...)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	a.namespace = probe.Namespace()

	a.sessions = session.NewManager(a.newClientSession,
		session.WithIdleTimeout[*clientSession](a.idleTimeout),
		session.WithMaxLifetime[*clientSession](a.maxLifetime),
		session.WithOnEnd(a.endClientSession),
	)

	m, err := newOpMetrics(a.registry, func() float64 { return float64(a.sessions.Len()) })
	if err != nil {
		return nil, fmt.Errorf("api: registering metrics: %w", err)
	}
	a.metrics = m
	a.monitor = newFailureMonitor(func(e AlertEvent) {
		m.alerts.WithLabelValues(string(e.Type)).Inc()
		a.alertFn(e)
	})

	cleanup := a.idleTimeout / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	a.sessions.StartCleanup(cleanup)
	return a, nil
}

func (a *API) newClientSession(id string) (*clientSession, error) {
	store := session.NewMemoryStore()
	opts := make([]vault.Option, 0, len(a.vaultOpts)+3)
	opts = append(opts, vault.WithLogger(a.logger.With(slog.String("session", shortID(id)))))
	opts = append(opts, a.vaultOpts...)
	opts = append(opts,
		vault.WithNamespace(sessionNamespace(a.namespace, id)),
		vault.WithObserver(a.observer(id)),
	)
	v, err := vault.New(a.local, store, opts...)
	if err != nil {
		return nil, err
	}
	return &clientSession{id: id, store: store, vault: v}, nil
}

// sessionNamespace scopes a client session's durable entries so that no
// other session can list, read, overwrite or delete them.
func sessionNamespace(base, id string) string {
	return base + "-" + id
}

// endClientSession discards the session key and purges the session's
// durable entries, which nothing can address once the cookie is gone.
func (a *API) endClientSession(cs *clientSession) {
	cs.store.Clear()
	a.limiter.forget(cs.id)

	names, err := cs.vault.Names()
	if err != nil {
		a.logger.Error("listing entries of ended session failed",
			slog.String("session", shortID(cs.id)), slog.Any("error", err))
		return
	}
	for _, name := range names {
		if err := cs.vault.Remove(name); err != nil {
			a.logger.Error("purging entry of ended session failed",
				slog.String("session", shortID(cs.id)),
				slog.String("name", name), slog.Any("error", err))
		}
	}
}

// observer feeds vault outcomes to the operation counters and to the
// failure trackers.
func (a *API) observer(id string) func(op string, err error) {
	return func(op string, err error) {
		a.metrics.record(op, err)
		switch {
		case errors.Is(err, vault.ErrDecryptionFailed):
			a.limiter.recordFailure(id)
			a.monitor.record(AlertDecryptFailureSpike)
		case isStorageError(err):
			a.monitor.record(AlertStorageFailureSpike)
		case err == nil && op == "decrypt":
			a.limiter.recordSuccess(id)
		}
	}
}

// Close ends every client session and stops background cleanup.
func (a *API) Close() {
	if a.sessions != nil {
		a.sessions.Close()
	}
}

// MetricsHandler serves the API's prometheus collectors.
func (a *API) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Post("/hash", a.Hash)
	r.Get("/token", a.Token)
	r.Post("/safety", a.Safety)

	// Everything touching the session key needs a client session.
	r.Group(func(r chi.Router) {
		r.Use(a.SessionMiddleware)
		r.Get("/entries", a.ListEntries)
		r.Put("/entries/{name}", a.PutEntry)
		r.Get("/entries/{name}", a.GetEntry)
		r.Delete("/entries/{name}", a.DeleteEntry)
		r.Post("/encrypt", a.Encrypt)
		r.Post("/decrypt", a.Decrypt)
		r.Post("/session/end", a.EndSession)
	})

	return r
}

func shortID(id string) string {
	return id[:min(8, len(id))]
}
