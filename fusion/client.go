// Package fusion implements the intent-based auction protocol: quoting, quote
// normalization, and the build, sign and submit order pipeline.
package fusion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ClipFinance/swap-router/aggregator"
	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	quotePath  = "quoter/v2.0/%d/quote/receive"
	buildPath  = "quoter/v2.0/%d/quote/build"
	submitPath = "relayer/v2.0/%d/order/submit"
	statusPath = "orders/v2.0/%d/order/status/%s"
)

// Preset is one auction preset of a quote response.
type Preset struct {
	AuctionDuration    uint64 `json:"auctionDuration"`
	StartAuctionIn     uint64 `json:"startAuctionIn"`
	InitialRateBump    uint64 `json:"initialRateBump"`
	AuctionStartAmount string `json:"auctionStartAmount"`
	StartAmount        string `json:"startAmount"`
	AuctionEndAmount   string `json:"auctionEndAmount"`
	CostInDstToken     string `json:"costInDstToken"`
	AllowPartialFills  bool   `json:"allowPartialFills"`
	AllowMultipleFills bool   `json:"allowMultipleFills"`
}

// QuoteResponse is the quoter response. Suggested and Slippage are nil when not reported.
type QuoteResponse struct {
	QuoteID                string            `json:"quoteId"`
	FromTokenAmount        string            `json:"fromTokenAmount"`
	ToTokenAmount          string            `json:"toTokenAmount"`
	Presets                map[string]Preset `json:"presets"`
	RecommendedPreset      string            `json:"recommended_preset"`
	RecommendedPresetCamel string            `json:"recommendedPreset"`
	SettlementAddress      string            `json:"settlementAddress"`
	Suggested              *bool             `json:"suggested"`
	Slippage               *decimal.Decimal  `json:"slippage"`
}

// Recommended returns the name of the preset the provider recommends.
func (r *QuoteResponse) Recommended() string {
	if r.RecommendedPreset != "" {
		return r.RecommendedPreset
	}
	return r.RecommendedPresetCamel
}

// QuoteParams are the parameters of a Fusion quote request. Token addresses are
// already resolved to the aggregator's native token convention.
type QuoteParams struct {
	ChainID        uint64
	Params         types.FusionParams
	EnableEstimate bool
	Slippage       string
	Referrer       string
}

// BuildResponse is the unsigned order returned by the build endpoint.
type BuildResponse struct {
	TypedData apitypes.TypedData `json:"typedData"`
	OrderHash string             `json:"orderHash"`
	Extension string             `json:"extension"`
}

// SubmitRequest is the body posted to the relayer.
type SubmitRequest struct {
	Order     map[string]interface{} `json:"order"`
	Signature string                 `json:"signature"`
	QuoteID   string                 `json:"quoteId"`
	Extension string                 `json:"extension"`
}

// OrderStatus is the relayer's view of a submitted order.
type OrderStatus struct {
	OrderHash string          `json:"orderHash"`
	Status    string          `json:"status"`
	Fills     json.RawMessage `json:"fills,omitempty"`
	CreatedAt string          `json:"createdAt,omitempty"`
}

// Client talks to the Fusion quoter, relayer and orders APIs.
type Client struct {
	api    *aggregator.Client
	logger *logrus.Logger
}

// NewClient creates a Fusion API client on top of the shared transport.
func NewClient(api *aggregator.Client, logger *logrus.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// Quote requests a Fusion quote.
//
// Parameters:
// - ctx: the context for managing the request.
// - params: the quote parameters.
//
// Returns:
// - *QuoteResponse: the decoded response.
// - json.RawMessage: the response body, needed again to build the order.
// - error: a *errors.RouteError if the request or decoding fails.
func (c *Client) Quote(ctx context.Context, params QuoteParams) (*QuoteResponse, json.RawMessage, error) {
	query := url.Values{}
	query.Set("fromTokenAddress", params.Params.FromTokenAddress)
	query.Set("toTokenAddress", params.Params.ToTokenAddress)
	query.Set("amount", params.Params.Amount)
	query.Set("walletAddress", params.Params.WalletAddress)
	query.Set("enableEstimate", fmt.Sprint(params.EnableEstimate))
	if params.Slippage != "" {
		query.Set("slippage", params.Slippage)
	}
	if params.Referrer != "" {
		query.Set("source", params.Referrer)
	}

	var raw json.RawMessage
	err := c.api.Do(ctx, aggregator.Request{
		Protocol: types.Fusion,
		Step:     commonerrors.StepQuote,
		Method:   http.MethodGet,
		Path:     fmt.Sprintf(quotePath, params.ChainID),
		Query:    query,
	}, &raw)
	if err != nil {
		return nil, nil, err
	}

	var resp QuoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, commonerrors.NewQuoteParseError(types.Fusion, commonerrors.StepQuote, "body", err)
	}
	return &resp, raw, nil
}

// BuildOrder asks the quoter to build the unsigned order for a quote.
//
// Parameters:
// - ctx: the context for managing the request.
// - quote: the Fusion payload of the selected quote.
// - wallet: the order maker.
//
// Returns:
// - *BuildResponse: the typed data, order hash and extension.
// - error: a *errors.RouteError if the request or decoding fails.
func (c *Client) BuildOrder(ctx context.Context, quote *types.FusionQuote, wallet string) (*BuildResponse, error) {
	query := url.Values{}
	query.Set("preset", quote.PresetName)
	query.Set("walletAddress", wallet)
	query.Set("fromTokenAddress", quote.Params.FromTokenAddress)
	query.Set("toTokenAddress", quote.Params.ToTokenAddress)
	query.Set("amount", quote.Params.Amount)

	var out BuildResponse
	err := c.api.Do(ctx, aggregator.Request{
		Protocol: types.Fusion,
		Step:     commonerrors.StepBuild,
		Method:   http.MethodPost,
		Path:     fmt.Sprintf(buildPath, quote.ChainID),
		Query:    query,
		Body:     quote.Response,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitOrder posts a signed order to the relayer.
//
// Parameters:
// - ctx: the context for managing the request.
// - chainID: the numeric chain id.
// - req: the signed order.
//
// Returns:
// - json.RawMessage: the relayer acknowledgement, possibly empty.
// - error: a *errors.RouteError if the relayer rejects the order.
func (c *Client) SubmitOrder(ctx context.Context, chainID uint64, req SubmitRequest) (json.RawMessage, error) {
	var ack json.RawMessage
	err := c.api.Do(ctx, aggregator.Request{
		Protocol: types.Fusion,
		Step:     commonerrors.StepSubmit,
		Method:   http.MethodPost,
		Path:     fmt.Sprintf(submitPath, chainID),
		Body:     req,
	}, &ack)
	if err != nil {
		return nil, err
	}
	return ack, nil
}

// OrderStatus returns the relayer status of a submitted order. The hash is escaped once, by the transport.
func (c *Client) OrderStatus(ctx context.Context, chainID uint64, orderHash string) (*OrderStatus, error) {
	var out OrderStatus
	err := c.api.Do(ctx, aggregator.Request{
		Protocol: types.Fusion,
		Step:     commonerrors.StepStatus,
		Method:   http.MethodGet,
		Path:     fmt.Sprintf(statusPath, chainID, orderHash),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
