package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/khomabhena/h5-airtime/internal/config"
	"github.com/khomabhena/h5-airtime/internal/logger"
	"github.com/khomabhena/h5-airtime/internal/sandbox"
	"github.com/khomabhena/h5-airtime/internal/version"
)

//	@title			h5-sandbox
//	@description	h5-sandbox is a local stand-in for the merchant payment API and the VAS aggregator API used by the H5 airtime checkout core.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description
//	@description	## Request Limits
//	@description	All endpoints are protected by:
//	@description	- **Rate limiting**: Configurable requests per second (see env vars) - default 100 rps (set to 0 to disable)
//	@description	- **Request size limits**: Configurable (see env vars) - default 1MB
//	@description
//	@description	## Authentication
//	@description	Payment endpoints require an `Authorization: SHA256withRSA ...` header; when the
//	@description	sandbox is started with MERCHANT_PUBLIC_KEY_PATH the signature is verified against
//	@description	the merchant public key. VAS endpoints require the `MerchantId` header.
//	@description
//	@license.name	MIT

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@tag.name			Payment
//	@tag.description	Merchant payment API mock (signed requests)

//	@tag.name			VAS
//	@tag.description	VAS aggregator API mock (static header auth)

//	@tag.name			Common
//	@tag.description	Server endpoints (health, version)

func main() {
	cmd := &cobra.Command{
		Use:   "h5-sandbox",
		Short: "Local mock of the H5 payment backends",
		Long:  `h5-sandbox serves the merchant payment API and VAS aggregator API wire protocols locally, verifying request signatures when a merchant public key is configured`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("VAS_API_VERSION", cfg.VASAPIVersion),
		slog.String("MERCHANT_PUBLIC_KEY_PATH", cfg.MerchantPublicKeyPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := sandbox.NewServer(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := server.Start(ctx); err != nil {
		appLogger.Error("server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
