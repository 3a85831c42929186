// Package cli implements the h5pay subcommands: operator tooling for the
// checkout core (order placement, status queries, catalog browsing, bridge
// diagnostics).
package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/khomabhena/h5-airtime/internal/appletree"
	"github.com/khomabhena/h5-airtime/internal/config"
	"github.com/khomabhena/h5-airtime/internal/logger"
	"github.com/khomabhena/h5-airtime/internal/signature"
	"github.com/khomabhena/h5-airtime/internal/superapp"
	"github.com/khomabhena/h5-airtime/internal/version"
)

var (
	cfg       *config.Environment
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "h5pay",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "H5 airtime checkout CLI",
	Long:              `Operator CLI for the H5 airtime checkout core: place and query merchant orders, browse the VAS catalog and inspect bridge detection`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewConfig()
		if err != nil {
			log.Printf("failed to load configuration: %v", err.Error())
			return err
		}

		appLogger = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
		return nil
	},
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(payCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(bridgesCmd)
}

// newPaymentGateway loads the merchant signing key and builds the payment
// gateway from the loaded config.
func newPaymentGateway() (*superapp.Gateway, error) {
	if cfg.SigningKeyPath == "" {
		return nil, fmt.Errorf("SIGNING_KEY_PATH is not set")
	}

	privateKey, err := signature.LoadPrivateKey(cfg.SigningKeyPath)
	if err != nil {
		return nil, err
	}

	engine, err := signature.NewEngine(signature.Credentials{
		MerchantID: cfg.MerchantID,
		AppID:      cfg.AppID,
		SerialNo:   cfg.KeySerialNo,
	}, privateKey)
	if err != nil {
		return nil, err
	}

	return superapp.NewGateway(engine, superapp.Config{
		BaseURL:     cfg.PaymentBaseURL,
		NotifyURL:   cfg.NotifyURL,
		RedirectURL: cfg.RedirectURL,
		OrderExpiry: cfg.OrderExpiry,
		HTTPTimeout: cfg.HTTPTimeout,
	}, appLogger), nil
}

// newVASGateway builds the aggregator client from the loaded config.
func newVASGateway() *appletree.Gateway {
	return appletree.NewGateway(appletree.Config{
		BaseURL:     cfg.VASBaseURL,
		APIVersion:  cfg.VASAPIVersion,
		MerchantID:  cfg.VASMerchantID,
		HTTPTimeout: cfg.HTTPTimeout,
		CacheTTL:    cfg.CatalogCacheTTL,
	}, appLogger)
}
