package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpcontext "github.com/dtroode/dnskeeper/internal/api/http/context"
	"github.com/dtroode/dnskeeper/internal/api/http/middleware"
	"github.com/dtroode/dnskeeper/internal/api/http/router"
	httpServer "github.com/dtroode/dnskeeper/internal/api/http/server"
	"github.com/dtroode/dnskeeper/internal/apikey"
	"github.com/dtroode/dnskeeper/internal/clock"
	"github.com/dtroode/dnskeeper/internal/cloudflare"
	"github.com/dtroode/dnskeeper/internal/config"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
	"github.com/dtroode/dnskeeper/internal/ratelimit"
	"github.com/dtroode/dnskeeper/internal/repository/postgres"
	"github.com/dtroode/dnskeeper/internal/server"
	"github.com/dtroode/dnskeeper/internal/service"
	"github.com/dtroode/dnskeeper/internal/token"
	"github.com/dtroode/dnskeeper/internal/vault"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	v, err := vault.NewFromHex(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("failed to initialize credential vault", "error", err)
	}

	db, err := postgres.NewConection(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	recordRepo := postgres.NewRecordRepository(db)
	credentialRepo := postgres.NewCredentialRepository(db)
	apiKeyRepo := postgres.NewAPIKeyRepository(db)

	clk := clock.Real()
	hasher := apikey.NewHasher(apikey.Params{Time: cfg.KDF.Time, MemKiB: cfg.KDF.MemKiB, Threads: cfg.KDF.Par})
	keySet := token.NewKeySet(cfg.Issuer.JWKSURL(), &http.Client{Timeout: cfg.Issuer.Timeout}, logger)
	verifier := token.NewVerifier(keySet, clk)
	provider := cloudflare.New(logger.Logr().WithName("cloudflare"), cfg.Provider.BaseURL, cfg.Provider.Timeout)

	credentialService := service.NewCredential(credentialRepo, v, logger)
	recordService := service.NewRecord(recordRepo, credentialService, provider, logger)
	apiKeyService := service.NewAPIKey(apiKeyRepo, recordRepo, hasher, logger)
	syncService := service.NewSync(apiKeyService, recordRepo, credentialService, provider, clk, logger)

	var limiter middleware.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		limiter = ratelimit.New(rdb, cfg.Redis.Rate, cfg.Redis.Burst, clk)
		logger.Info("sync rate limiting enabled", "redis", cfg.Redis.Addr, "rate", cfg.Redis.Rate, "burst", cfg.Redis.Burst)
	}

	r := router.New(
		router.Services{
			Records:     recordService,
			Credentials: credentialService,
			APIKeys:     apiKeyService,
			Sync:        syncService,
		},
		verifier,
		limiter,
		db,
		httpcontext.NewManager(),
		logger,
	)
	srv := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var transport model.Transport
	if cfg.HTTP.EnableHTTPS {
		transport = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		transport = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address(), "scheme", transport.Scheme())
		if err := s.Start(transport); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(srv)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
