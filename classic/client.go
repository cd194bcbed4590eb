// Package classic implements the direct on-chain swap protocol: quoting, quote
// normalization and execution of the built transaction.
package classic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ClipFinance/swap-router/aggregator"
	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PriceQuote is the response of the price-only quote endpoint.
type PriceQuote struct {
	DstAmount string      `json:"dstAmount"`
	Gas       json.Number `json:"gas,omitempty"`
}

// QuoteParams are the parameters of a Classic quote request. Token addresses are
// already resolved to the aggregator's native token convention.
type QuoteParams struct {
	ChainID    uint64
	Src        string
	Dst        string
	Amount     string
	From       string
	Slippage   string
	Referrer   string
	Executable bool
}

// QuoteResult holds both legs of a Classic quote. Swap is nil for price-only requests.
type QuoteResult struct {
	Price *PriceQuote
	Swap  *types.ClassicQuote
}

// Client talks to the Classic swap API.
type Client struct {
	api    *aggregator.Client
	logger *logrus.Logger
}

// NewClient creates a Classic API client on top of the shared transport.
func NewClient(api *aggregator.Client, logger *logrus.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// Quote requests the price quote and, for executable requests, the built swap transaction.
// Both legs are requested concurrently; the first failure cancels the other.
//
// Parameters:
// - ctx: the context for managing the request.
// - params: the quote parameters.
//
// Returns:
// - *QuoteResult: both legs of the quote.
// - error: a *errors.RouteError if either leg fails.
func (c *Client) Quote(ctx context.Context, params QuoteParams) (*QuoteResult, error) {
	result := &QuoteResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		price, err := c.priceQuote(gctx, params)
		if err != nil {
			return err
		}
		result.Price = price
		return nil
	})
	if params.Executable {
		g.Go(func() error {
			swap, err := c.swapQuote(gctx, params)
			if err != nil {
				return err
			}
			result.Swap = swap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.WithFields(logrus.Fields{
			"chain_id": params.ChainID,
			"protocol": types.Classic,
		}).WithError(err).Error("Classic quote failed")
		return nil, err
	}

	return result, nil
}

func (c *Client) priceQuote(ctx context.Context, params QuoteParams) (*PriceQuote, error) {
	query := url.Values{}
	query.Set("src", params.Src)
	query.Set("dst", params.Dst)
	query.Set("amount", params.Amount)
	query.Set("includeGas", "true")

	var out PriceQuote
	err := c.api.Do(ctx, aggregator.Request{
		Protocol: types.Classic,
		Step:     commonerrors.StepQuote,
		Method:   http.MethodGet,
		Path:     strconv.FormatUint(params.ChainID, 10) + "/quote",
		Query:    query,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) swapQuote(ctx context.Context, params QuoteParams) (*types.ClassicQuote, error) {
	query := url.Values{}
	query.Set("src", params.Src)
	query.Set("dst", params.Dst)
	query.Set("amount", params.Amount)
	query.Set("from", params.From)
	query.Set("slippage", params.Slippage)
	if params.Referrer != "" {
		query.Set("referrer", params.Referrer)
	}
	query.Set("disableEstimate", "true")

	var out types.ClassicQuote
	err := c.api.Do(ctx, aggregator.Request{
		Protocol: types.Classic,
		Step:     commonerrors.StepSwap,
		Method:   http.MethodGet,
		Path:     strconv.FormatUint(params.ChainID, 10) + "/swap",
		Query:    query,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
