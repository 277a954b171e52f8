package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/eversafe/go-vault-sync/internal/adapter"
	"github.com/eversafe/go-vault-sync/internal/client"
	"github.com/eversafe/go-vault-sync/internal/config"
	"github.com/eversafe/go-vault-sync/internal/crypto"
	"github.com/eversafe/go-vault-sync/internal/logger"
	"github.com/eversafe/go-vault-sync/internal/service"
	"github.com/eversafe/go-vault-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.New("vault-sync-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	serverAdapter := adapter.NewHTTPVaultAdapter(adapter.HTTPClientConfig{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.RequestTimeout,
	}, log)

	gateway := crypto.NewGateway()

	services, err := service.NewClientServices(serverAdapter, gateway, *cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create client services")
	}

	build := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	app, err := client.NewApp(services, serverAdapter, gateway, cfg, build, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = app.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
