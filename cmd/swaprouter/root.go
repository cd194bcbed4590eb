package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ClipFinance/swap-router/aggregator"
	"github.com/ClipFinance/swap-router/chainmanager"
	"github.com/ClipFinance/swap-router/chains/evm"
	"github.com/ClipFinance/swap-router/classic"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ClipFinance/swap-router/config"
	"github.com/ClipFinance/swap-router/dbconfig"
	"github.com/ClipFinance/swap-router/fusion"
	"github.com/ClipFinance/swap-router/router"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const userAgent = "swaprouter-cli/0.1.0"

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry types.ChainRegistry
	router   *router.Router
}

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:   "swaprouter",
		Short: "Quote and execute 1inch swaps across Fusion and Classic",
		Long: `swaprouter asks 1inch Fusion for a gasless quote and falls back to the Classic
aggregation API when Fusion cannot serve the request.

Examples:
  swaprouter chains
  swaprouter quote --chain arbitrum --from 0xaf88d065e77c8cC2239327C5EDb3A432268e5831 --to 0x0000000000000000000000000000000000000000 --amount 1000000
  swaprouter swap --chain base --from 0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913 --to 0x4200000000000000000000000000000000000006 --amount 5000000 --wait
  swaprouter status ethereum 0x<order-hash>`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory containing .swap-router.yaml (default $HOME and .)")

	load := func(cmd *cobra.Command) (*app, error) {
		var dirs []string
		if configDir != "" {
			dirs = append(dirs, configDir)
		}
		cfg, err := config.Load(dirs...)
		if err != nil {
			return nil, err
		}
		return newApp(cmd.Context(), cfg)
	}

	root.AddCommand(
		newChainsCmd(load),
		newQuoteCmd(load),
		newSwapCmd(load),
		newStatusCmd(load),
	)
	return root
}

type loader func(cmd *cobra.Command) (*app, error)

// newApp wires the registry, the aggregator clients and the router from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := cfg.Logger()

	registry, err := loadRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	classicAPI, err := aggregator.NewClient(cfg.ClassicBaseURL, apiOptions(cfg, logger)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create classic client")
	}
	fusionAPI, err := aggregator.NewClient(cfg.FusionBaseURL, apiOptions(cfg, logger)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fusion client")
	}

	adjustor, err := evm.NewArbitrumFeeAdjustor(logger)
	if err != nil {
		return nil, err
	}

	r, err := router.NewRouter(router.Config{
		Registry:      registry,
		Classic:       classic.NewClient(classicAPI, logger),
		Fusion:        fusion.NewClient(fusionAPI, logger),
		FeeAdjustor:   adjustor,
		Referrer:      cfg.Referrer,
		SubmitTimeout: cfg.SubmitTimeout,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, registry: registry, router: r}, nil
}

// loadRegistry reads chains from Postgres when a database is configured, otherwise it
// uses the built-in chain table with RPC endpoints from the configuration.
func loadRegistry(ctx context.Context, cfg *config.Config) (types.ChainRegistry, error) {
	if cfg.DatabaseURL != "" {
		db, err := dbconfig.NewDBConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db.LoadRegistry(ctx)
	}

	builder := chainmanager.NewRegistryBuilder().WithChains(chainmanager.DefaultChains()...)
	for name, url := range cfg.RpcUrls {
		builder.WithRpcUrl(name, url)
	}
	return builder.Build()
}

func apiOptions(cfg *config.Config, logger *logrus.Logger) []aggregator.Option {
	return []aggregator.Option{
		aggregator.WithAPIKey(cfg.APIKey),
		aggregator.WithUserAgent(userAgent),
		aggregator.WithLogger(logger),
		aggregator.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
