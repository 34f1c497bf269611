// Package rpc serves the HTTP/JSON API over the ledger node.
package rpc

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"yieldsplit/native/bonds"
	nativecommon "yieldsplit/native/common"
	"yieldsplit/native/escrow"
	"yieldsplit/native/vault"
	"yieldsplit/observability"
	"yieldsplit/services/relayer"
	"yieldsplit/storage/eventlog"
)

// Ledger is the node surface the API drives.
type Ledger interface {
	Asset() string
	Owner() [20]byte
	Height() uint64
	ClaimSymbols() (pt, yt string)
	Balance(symbol string, addr [20]byte) (*big.Int, error)
	Transfer(caller, to [20]byte, amount *big.Int) error
	EscrowVault(name string) (*escrow.Vault, error)
	Pause(caller [20]byte, module string) error
	Resume(caller [20]byte, module string) error
	Paused(module string) (bool, error)

	BondCreate(caller [20]byte, amount *big.Int, term uint64) (uint64, error)
	BondDepositYield(caller [20]byte, id uint64, amount *big.Int) (*big.Int, error)
	BondCollectYield(caller [20]byte, id uint64) (*big.Int, error)
	BondRedeem(caller [20]byte, id uint64) (*big.Int, error)
	BondCombine(caller [20]byte, id uint64) (*big.Int, error)
	BondTransferClaim(caller [20]byte, id uint64, claim string, to [20]byte) error
	BondAllow(caller, addr [20]byte) error
	BondRevoke(caller, addr [20]byte) error
	BondPosition(id uint64) (*bonds.Position, error)
	BondAvailableYield(id uint64) (*big.Int, error)
	BondStats() (*bonds.Meta, error)
	BondAuthority() (*nativecommon.Authority, error)

	VaultInitialize(caller [20]byte, maturity uint64) error
	VaultDeposit(caller [20]byte, amount *big.Int) (*big.Int, error)
	VaultSyncYield(caller [20]byte, amount *big.Int) (*big.Int, error)
	VaultClaimYield(caller [20]byte) (*big.Int, error)
	VaultRedeem(caller [20]byte, amount *big.Int) (*big.Int, error)
	VaultCombine(caller [20]byte, amount *big.Int) (*big.Int, error)
	VaultTransferClaim(caller [20]byte, claim string, to [20]byte, amount *big.Int) error
	VaultPool() (*vault.Pool, error)
	VaultHolder(addr [20]byte) (*vault.HolderView, error)
	VaultPreviewClaimable(addr [20]byte) (*big.Int, error)
	VaultAudit() error
}

// EventLister reads the committed event journal.
type EventLister interface {
	List(ctx context.Context, eventType string, limit int) ([]eventlog.Record, error)
}

// RelayerStatus reports the reward relayer's last cycle.
type RelayerStatus interface {
	Status() relayer.Status
}

// Config wires optional collaborators. Nil Events or Relayer disables the
// matching routes with 404.
type Config struct {
	Auth      AuthConfig
	RateLimit RateLimit
	Events    EventLister
	Relayer   RelayerStatus
	Logger    *slog.Logger
}

type Server struct {
	ledger  Ledger
	events  EventLister
	relayer RelayerStatus
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger
}

func NewServer(ledger Ledger, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ledger:  ledger,
		events:  cfg.Events,
		relayer: cfg.Relayer,
		auth:    NewAuthenticator(cfg.Auth),
		limiter: NewRateLimiter(cfg.RateLimit),
		logger:  logger.With("component", "rpc"),
	}
}

// Authenticator exposes token issuance for operator tooling.
func (s *Server) Authenticator() *Authenticator { return s.auth }

// Handler returns the routed, traced API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "height": s.ledger.Height()})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(pub chi.Router) {
			pub.Use(s.limiter.Middleware("query"))
			pub.With(s.observe("bonds")).Get("/bonds/stats", s.handleBondStats)
			pub.With(s.observe("bonds")).Get("/bonds/authority", s.handleBondAuthority)
			pub.With(s.observe("bonds")).Get("/bonds/{id}", s.handleBondPosition)
			pub.With(s.observe("vault")).Get("/vault", s.handleVaultPool)
			pub.With(s.observe("vault")).Get("/vault/audit", s.handleVaultAudit)
			pub.With(s.observe("vault")).Get("/vault/holders/{addr}", s.handleVaultHolder)
			pub.With(s.observe("vault")).Get("/vault/holders/{addr}/claimable", s.handleVaultClaimable)
			pub.With(s.observe("bank")).Get("/balances/{addr}", s.handleBalances)
			pub.With(s.observe("escrow")).Get("/escrow/{name}", s.handleEscrow)
			pub.With(s.observe("node")).Get("/events", s.handleEvents)
			pub.With(s.observe("node")).Get("/relayer/status", s.handleRelayerStatus)
			pub.With(s.observe("node")).Get("/admin/pauses", s.handlePauses)
		})
		v1.Group(func(priv chi.Router) {
			priv.Use(s.auth.Middleware)
			priv.Use(s.limiter.Middleware("mutate"))
			// Flat paths only: a mounted subrouter would shadow the public GETs on its prefix.
			bondRoutes := priv.With(s.observe("bonds"))
			bondRoutes.Post("/bonds", s.handleBondCreate)
			bondRoutes.Post("/bonds/authority/allow", s.handleBondAllow)
			bondRoutes.Post("/bonds/authority/revoke", s.handleBondRevoke)
			bondRoutes.Post("/bonds/{id}/yield", s.handleBondDepositYield)
			bondRoutes.Post("/bonds/{id}/collect", s.handleBondCollect)
			bondRoutes.Post("/bonds/{id}/redeem", s.handleBondRedeem)
			bondRoutes.Post("/bonds/{id}/combine", s.handleBondCombine)
			bondRoutes.Post("/bonds/{id}/transfer", s.handleBondTransfer)
			vaultRoutes := priv.With(s.observe("vault"))
			vaultRoutes.Post("/vault/initialize", s.handleVaultInitialize)
			vaultRoutes.Post("/vault/deposit", s.handleVaultDeposit)
			vaultRoutes.Post("/vault/sync", s.handleVaultSync)
			vaultRoutes.Post("/vault/claim", s.handleVaultClaim)
			vaultRoutes.Post("/vault/redeem", s.handleVaultRedeem)
			vaultRoutes.Post("/vault/combine", s.handleVaultCombine)
			vaultRoutes.Post("/vault/transfer", s.handleVaultTransfer)
			priv.With(s.observe("bank")).Post("/transfer", s.handleTransfer)
			priv.With(s.observe("node")).Post("/admin/pause", s.handlePause)
			priv.With(s.observe("node")).Post("/admin/resume", s.handleResume)
		})
	})
	return otelhttp.NewHandler(r, "yieldsplit-api")
}

// observe records per-route metrics once the handler has written its status.
func (s *Server) observe(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			route := r.Method + " " + r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = r.Method + " " + pattern
				}
			}
			observability.ModuleMetrics().Observe(module, route, recorder.status, time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
