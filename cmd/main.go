package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dcriggs/eth-password-manager/internal/api/rpc"
	"github.com/dcriggs/eth-password-manager/internal/config"
	"github.com/dcriggs/eth-password-manager/internal/logger"
	"github.com/dcriggs/eth-password-manager/internal/model"
	"github.com/dcriggs/eth-password-manager/internal/repository/postgres"
	"github.com/dcriggs/eth-password-manager/internal/server"
	"github.com/dcriggs/eth-password-manager/internal/service"
	storage "github.com/dcriggs/eth-password-manager/internal/storage/minio"
	"github.com/dcriggs/eth-password-manager/internal/token"
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

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	ledger := postgres.NewLedger(db)
	sessionRepo := postgres.NewSessionRepository(db.Pool)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db.Pool)

	tokenManager := token.NewJWT(cfg.JWT.Secret)
	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, logger)
	authService := service.NewAuth(sessionRepo, tokenService, logger)

	authenticator := service.NewAuthenticator(service.Scheme(cfg.AuthScheme))
	registryService := service.NewRegistry(ledger, authenticator, logger)
	vaultService := service.NewVault(ledger, authenticator, logger)
	sharingService := service.NewSharing(ledger, logger)

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	ctxMgr := rpc.NewContextManager()
	handler := rpc.NewHandler(registryService, vaultService, sharingService, authService, tokenService, storageClient, ctxMgr, logger)

	httpServer := server.NewHTTPServer(handler.Routes(), fmt.Sprintf(":%s", cfg.RPC.Port))

	var sl model.SecurityLayer
	if cfg.RPC.EnableHTTPS {
		sl = server.NewTLSListener(cfg.RPC.CertFileName, cfg.RPC.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
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
