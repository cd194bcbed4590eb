// Package router selects the protocol that serves a swap request and dispatches
// execution of the chosen quote.
package router

import (
	"context"
	"time"

	"github.com/ClipFinance/swap-router/classic"
	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ClipFinance/swap-router/fusion"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config holds the collaborators of a Router.
//
// Fields:
// - Registry: the read-only chain configuration.
// - Classic: the Classic API client, required.
// - Fusion: the Fusion API client; nil disables Fusion on every chain.
// - FeeAdjustor: recomputes gas on chains with an extra fee model.
// - Referrer: the referrer address reported to the aggregator, optional.
// - SubmitTimeout: the bound on Fusion submission after signing.
// - Logger: the logger.
type Config struct {
	Registry      types.ChainRegistry
	Classic       *classic.Client
	Fusion        *fusion.Client
	FeeAdjustor   types.FeeAdjustor
	Referrer      string
	SubmitTimeout time.Duration
	Logger        *logrus.Logger
}

// Router resolves and executes swaps across the Fusion and Classic protocols.
// It holds no per-request state and is safe for concurrent use.
type Router struct {
	registry types.ChainRegistry
	classic  *classic.Client
	fusion   *fusion.Client
	executor *classic.Executor
	pipeline *fusion.Pipeline
	adjustor types.FeeAdjustor
	referrer string
	logger   *logrus.Logger
}

// NewRouter creates a router from its collaborators.
//
// Parameters:
// - cfg: the router configuration.
//
// Returns:
// - *Router: the router.
// - error: ErrInvalidConfig if a required collaborator is missing.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.Registry == nil {
		return nil, errors.Wrap(commonerrors.ErrInvalidConfig, "chain registry is required")
	}
	if cfg.Classic == nil {
		return nil, errors.Wrap(commonerrors.ErrInvalidConfig, "classic client is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := &Router{
		registry: cfg.Registry,
		classic:  cfg.Classic,
		fusion:   cfg.Fusion,
		executor: classic.NewExecutor(logger),
		adjustor: cfg.FeeAdjustor,
		referrer: cfg.Referrer,
		logger:   logger,
	}
	if cfg.Fusion != nil {
		r.pipeline = fusion.NewPipeline(cfg.Fusion, logger, cfg.SubmitTimeout)
	}
	return r, nil
}

// Route returns the best available quote for req.
//
// Fusion serves the request when the chain allows it and the provider returns a usable,
// tolerance-respecting quote. Transport failures and ineligible Fusion quotes fall back to
// Classic, which is only asked once the Fusion outcome is known. Classic failures, and
// any other Fusion failure, are returned to the caller.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the swap request.
//
// Returns:
// - *types.Quote: the canonical quote.
// - error: ErrChainNotFound, ErrInvalidRequest or a *errors.RouteError.
func (r *Router) Route(ctx context.Context, req types.SwapRequest) (*types.Quote, error) {
	chain, err := r.registry.Get(req.Chain)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	logger := r.logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"chain":      chain.Name,
		"price_only": req.IsPriceOnly(),
	})

	src := tokenAddress(chain, req.FromToken)
	dst := tokenAddress(chain, req.ToToken)

	if chain.FusionEnabled && r.fusion != nil {
		quote, err := r.quoteFusion(ctx, chain, req, src, dst)
		if err == nil {
			logger.WithField("protocol", types.Fusion).Debug("Route resolved")
			return quote, nil
		}
		rerr, ok := commonerrors.AsRouteError(err)
		if !ok || !rerr.Soft() {
			logger.WithField("protocol", types.Fusion).WithError(err).Error("Fusion quote failed")
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"protocol": types.Fusion,
			"kind":     rerr.Kind,
			"status":   rerr.StatusCode,
		}).WithError(rerr.Err).Warn("Fusion unavailable, falling back to Classic")
	}

	quote, err := r.quoteClassic(ctx, chain, req, src, dst)
	if err != nil {
		return nil, err
	}
	logger.WithField("protocol", types.Classic).Debug("Route resolved")
	return quote, nil
}

func (r *Router) quoteFusion(ctx context.Context, chain *types.ChainConfig, req types.SwapRequest, src, dst string) (*types.Quote, error) {
	params := types.FusionParams{
		FromTokenAddress: src,
		ToTokenAddress:   dst,
		Amount:           req.Amount.String(),
		WalletAddress:    req.UserAddress.Hex(),
	}
	tolerance := req.SlippagePercent()

	resp, raw, err := r.fusion.Quote(ctx, fusion.QuoteParams{
		ChainID:        chain.ChainID,
		Params:         params,
		EnableEstimate: !req.IsPriceOnly(),
		Slippage:       tolerance.String(),
		Referrer:       r.referrer,
	})
	if err != nil {
		return nil, err
	}
	if err := fusion.CheckEligibility(resp, tolerance); err != nil {
		return nil, err
	}
	return fusion.Normalize(chain, params, resp, raw, req.ToTokenDecimals, !req.IsPriceOnly())
}

func (r *Router) quoteClassic(ctx context.Context, chain *types.ChainConfig, req types.SwapRequest, src, dst string) (*types.Quote, error) {
	result, err := r.classic.Quote(ctx, classic.QuoteParams{
		ChainID:    chain.ChainID,
		Src:        src,
		Dst:        dst,
		Amount:     req.Amount.String(),
		From:       req.UserAddress.Hex(),
		Slippage:   req.SlippagePercent().String(),
		Referrer:   r.referrer,
		Executable: !req.IsPriceOnly(),
	})
	if err != nil {
		return nil, err
	}
	return classic.Normalize(ctx, chain, result, r.adjustor)
}

// Execute performs the swap described by quote with wallet. The quote's protocol alone
// selects the executor.
//
// Parameters:
// - ctx: the context for managing the request.
// - quote: a quote returned by Route.
// - wallet: the wallet that signs and sends.
//
// Returns:
// - *types.ExecutionResult: the transaction hash or the submitted order hash.
// - error: ErrUnsupportedQuote, ErrNotExecutable or a *errors.RouteError.
func (r *Router) Execute(ctx context.Context, quote *types.Quote, wallet types.Wallet) (*types.ExecutionResult, error) {
	if quote == nil {
		return nil, commonerrors.ErrUnsupportedQuote
	}
	if wallet == nil {
		return nil, commonerrors.ErrSignerNotProvided
	}

	switch quote.Protocol {
	case types.Classic:
		return r.executor.Execute(ctx, quote, wallet)
	case types.Fusion:
		if r.pipeline == nil {
			return nil, errors.Wrap(commonerrors.ErrUnsupportedQuote, "fusion is not configured")
		}
		return r.pipeline.Execute(ctx, quote, wallet)
	default:
		return nil, errors.Wrapf(commonerrors.ErrUnsupportedQuote, "protocol %q", quote.Protocol)
	}
}

// ApprovalAddress returns the contract the source token must approve on chain.
func (r *Router) ApprovalAddress(chain string) (string, error) {
	config, err := r.registry.Get(chain)
	if err != nil {
		return "", err
	}
	return config.Spender, nil
}

// OrderStatus returns the relayer status of a submitted Fusion order.
//
// Parameters:
// - ctx: the context for managing the request.
// - chain: the chain name.
// - orderHash: the order hash returned by Execute.
//
// Returns:
// - *fusion.OrderStatus: the order status.
// - error: ErrChainNotFound, ErrUnsupportedQuote when Fusion is unavailable, or a *errors.RouteError.
func (r *Router) OrderStatus(ctx context.Context, chain, orderHash string) (*fusion.OrderStatus, error) {
	config, err := r.registry.Get(chain)
	if err != nil {
		return nil, err
	}
	if r.fusion == nil || !config.FusionEnabled {
		return nil, errors.Wrapf(commonerrors.ErrUnsupportedQuote, "fusion is not available on %q", config.Name)
	}
	return r.fusion.OrderStatus(ctx, config.ChainID, orderHash)
}

func validateRequest(req types.SwapRequest) error {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return errors.Wrap(commonerrors.ErrInvalidRequest, "amount must be positive")
	}
	if req.Slippage.IsNegative() {
		return errors.Wrap(commonerrors.ErrInvalidRequest, "slippage must not be negative")
	}
	if req.ToTokenDecimals < 0 {
		return errors.Wrap(commonerrors.ErrInvalidRequest, "token decimals must not be negative")
	}
	if req.FromToken == req.ToToken {
		return errors.Wrap(commonerrors.ErrInvalidRequest, "source and destination tokens are equal")
	}
	return nil
}

// tokenAddress maps the zero-address sentinel to the chain's native token address.
func tokenAddress(chain *types.ChainConfig, token common.Address) string {
	if token == types.ZeroAddress {
		return chain.NativeToken
	}
	return token.Hex()
}
