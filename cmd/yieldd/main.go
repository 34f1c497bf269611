package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"yieldsplit/cmd/internal/passphrase"
	"yieldsplit/config"
	"yieldsplit/core"
	"yieldsplit/core/events"
	"yieldsplit/crypto"
	"yieldsplit/observability"
	"yieldsplit/observability/logging"
	"yieldsplit/observability/metrics"
	telemetry "yieldsplit/observability/otel"
	"yieldsplit/rpc"
	"yieldsplit/services/relayer"
	"yieldsplit/storage"
	"yieldsplit/storage/eventlog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("yieldd", flag.ContinueOnError)
	configFile := fs.String("config", "./config.toml", "Path to the configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	opts := []logging.Option{logging.WithLevel(cfg.Log.Level)}
	if strings.TrimSpace(cfg.Log.File) != "" {
		opts = append(opts, logging.WithFile(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups))
	}
	logger, closeLog := logging.Setup("yieldd", cfg.Environment, opts...)
	defer closeLog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "yieldd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTelemetry(flushCtx)
	}()

	owner, err := cfg.OwnerAddress()
	if err != nil {
		return err
	}
	if err := unlockOperator(cfg, owner); err != nil {
		return err
	}

	db, err := storage.NewLevelDB(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer db.Close()

	emitters := events.Multi{observability.Events()}
	var journal *eventlog.Log
	if !strings.EqualFold(cfg.EventLog.Driver, eventlog.DriverNone) {
		journal, err = eventlog.Open(cfg.EventLog.Driver, cfg.EventLogDSN(), logger)
		if err != nil {
			return err
		}
		defer journal.Close()
		emitters = append(emitters, journal)
	}

	node, err := core.NewNode(db, core.Options{
		Asset:   cfg.Asset,
		Owner:   owner,
		MaxTerm: cfg.MaxTerm,
		Heights: core.ClockHeight{Genesis: cfg.GenesisTime, Interval: cfg.BlockInterval.Duration},
		Emitter: emitters,
		Logger:  logger,
		Metrics: metrics.Yield(),
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	allocations, err := cfg.ParsedAllocations()
	if err != nil {
		return err
	}
	applied, err := node.ApplyAllocations(allocations)
	if err != nil {
		return fmt.Errorf("apply allocations: %w", err)
	}
	if applied {
		logger.Info("genesis allocations applied", slog.Int("accounts", len(allocations)))
	}

	var proc *relayer.Processor
	if path := strings.TrimSpace(cfg.Relayer.ConfigPath); path != "" {
		relayerCfg, err := relayer.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("load relayer config: %w", err)
		}
		source, err := relayer.NewQuoteSource(relayerCfg.Quote)
		if err != nil {
			return err
		}
		proc = relayer.NewProcessor(node, source, relayerCfg,
			relayer.WithLogger(logger),
			relayer.WithMetrics(metrics.Yield()))
	}

	serverCfg := rpc.Config{
		Auth: rpc.AuthConfig{
			HMACSecret: cfg.Auth.Secret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		},
		RateLimit: rpc.RateLimit{RequestsPerSecond: cfg.RateLimit.RequestsPerSecond, Burst: cfg.RateLimit.Burst},
		Logger:    logger,
	}
	if journal != nil {
		serverCfg.Events = journal
	}
	if proc != nil {
		serverCfg.Relayer = proc
	}
	api := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           rpc.NewServer(node, serverCfg).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	servers := []*http.Server{api}
	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	if proc != nil {
		g.Go(func() error { return proc.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
			}
		}
		return nil
	})

	logger.Info("yieldd started",
		slog.String("owner", crypto.AddressFromRaw(owner).String()),
		slog.String("asset", cfg.Asset),
		slog.Uint64("height", node.Height()))
	return g.Wait()
}

// unlockOperator proves the process holds the owner key when a keystore is
// configured.
func unlockOperator(cfg *config.Config, owner [20]byte) error {
	path := strings.TrimSpace(cfg.OperatorKeystore)
	if path == "" {
		return nil
	}
	pass, err := passphrase.NewSource(config.PassphraseEnv).Get()
	if err != nil {
		return err
	}
	addr, _, err := crypto.LoadOperator(path, pass)
	if err != nil {
		return fmt.Errorf("unlock operator keystore: %w", err)
	}
	if addr.Raw() != owner {
		return fmt.Errorf("operator keystore %s controls %s, not the configured owner", path, addr)
	}
	return nil
}

// runToken issues an API bearer token for a holder address.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configFile := fs.String("config", "./config.toml", "Path to the configuration file")
	subject := fs.String("subject", "", "Holder address the token authenticates (defaults to the owner)")
	ttl := fs.Duration("ttl", 0, "Token lifetime (defaults to auth.TokenTTL)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	target := strings.TrimSpace(*subject)
	if target == "" {
		target = cfg.Owner
	}
	addr, err := crypto.DecodeAddress(target)
	if err != nil {
		return fmt.Errorf("invalid subject: %w", err)
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.Auth.TokenTTL.Duration
	}
	auth := rpc.NewAuthenticator(rpc.AuthConfig{
		HMACSecret: cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	})
	token, err := auth.Issue(addr.Raw(), lifetime)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
