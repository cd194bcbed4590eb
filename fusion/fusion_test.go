package fusion

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ClipFinance/swap-router/aggregator"
	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	spender   = "0x111111125421cA6dc452d289314280a0f8842A65"
	orderHash = "0x5d6f2b0a0c9f4f0a8dd7a0e6c3c1a1f0b8f07a2e0d1c9b8a7f6e5d4c3b2a1908"

	quoteBody = `{
		"quoteId": "q-1",
		"fromTokenAmount": "1000000",
		"toTokenAmount": "1100",
		"recommended_preset": "fast",
		"presets": {
			"fast": {
				"auctionDuration": 180,
				"startAuctionIn": 12,
				"initialRateBump": 1000,
				"auctionStartAmount": "1000",
				"startAmount": "1050",
				"auctionEndAmount": "900",
				"costInDstToken": "5",
				"allowPartialFills": false,
				"allowMultipleFills": false
			}
		},
		"suggested": true,
		"slippage": 0.5
	}`
)

var ethereum = &types.ChainConfig{Name: "ethereum", ChainID: 1, Spender: spender}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func decodeQuote(t *testing.T, body string) *QuoteResponse {
	t.Helper()
	var resp QuoteResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return &resp
}

func TestCheckEligibility(t *testing.T) {
	tolerance := decimal.RequireFromString("1")

	tests := []struct {
		name     string
		body     string
		eligible bool
	}{
		{name: "suggested within tolerance", body: `{"suggested":true,"slippage":0.5}`, eligible: true},
		{name: "slippage equal to tolerance", body: `{"suggested":true,"slippage":"1"}`, eligible: true},
		{name: "no flags reported", body: `{}`, eligible: true},
		{name: "not suggested", body: `{"suggested":false,"slippage":0.5}`},
		{name: "slippage above tolerance", body: `{"slippage":1.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEligibility(decodeQuote(t, tt.body), tolerance)
			if tt.eligible {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, commonerrors.ErrIneligibleRoute))
			rerr, ok := commonerrors.AsRouteError(err)
			require.True(t, ok)
			assert.True(t, rerr.Soft())
		})
	}
}

func TestNormalizeUsesConservativeAmount(t *testing.T) {
	params := types.FusionParams{FromTokenAddress: "0xa", ToTokenAddress: "0xb", Amount: "1000000", WalletAddress: "0xc"}
	quote, err := Normalize(ethereum, params, decodeQuote(t, quoteBody), json.RawMessage(quoteBody), 6, true)
	require.NoError(t, err)

	assert.Equal(t, types.Fusion, quote.Protocol)
	assert.Equal(t, "1000", quote.AmountReturned.String())
	require.NotNil(t, quote.EstimatedGas)
	assert.Equal(t, uint64(0), *quote.EstimatedGas)
	assert.Equal(t, spender, quote.TokenApprovalAddress)
	assert.Equal(t, types.ProviderLogo, quote.Logo)
	assert.Nil(t, quote.Classic)

	require.NotNil(t, quote.Fusion)
	assert.Equal(t, uint64(1), quote.Fusion.ChainID)
	assert.Equal(t, "fast", quote.Fusion.PresetName)
	assert.Equal(t, "q-1", quote.Fusion.Preset.QuoteID)
	assert.Equal(t, "1000", quote.Fusion.Preset.StartAmount.String())
	assert.Equal(t, "900", quote.Fusion.Preset.EndAmount.String())
	assert.Equal(t, params, quote.Fusion.Params)
	assert.JSONEq(t, quoteBody, string(quote.Fusion.Response))
}

func TestNormalizePriceOnlyHasNoPayload(t *testing.T) {
	quote, err := Normalize(ethereum, types.FusionParams{}, decodeQuote(t, quoteBody), json.RawMessage(quoteBody), 6, false)
	require.NoError(t, err)
	assert.Nil(t, quote.Fusion)
	assert.False(t, quote.Executable())
}

func TestNormalizeAcceptsCamelCaseRecommendedPreset(t *testing.T) {
	body := `{"quoteId":"q","toTokenAmount":"10","recommendedPreset":"slow",
		"presets":{"slow":{"auctionStartAmount":"8","auctionEndAmount":"12"}}}`
	quote, err := Normalize(ethereum, types.FusionParams{}, decodeQuote(t, body), json.RawMessage(body), 18, true)
	require.NoError(t, err)
	assert.Equal(t, "10", quote.AmountReturned.String())
}

func TestNormalizeRejectsMalformedPayloads(t *testing.T) {
	tests := map[string]string{
		"missing preset name": `{"quoteId":"q","toTokenAmount":"1","presets":{"fast":{"auctionStartAmount":"1","auctionEndAmount":"1"}}}`,
		"unknown preset":      `{"quoteId":"q","toTokenAmount":"1","recommended_preset":"medium","presets":{}}`,
		"missing settled":     `{"quoteId":"q","recommended_preset":"fast","presets":{"fast":{"auctionStartAmount":"1","auctionEndAmount":"1"}}}`,
		"malformed start":     `{"quoteId":"q","toTokenAmount":"1","recommended_preset":"fast","presets":{"fast":{"auctionStartAmount":"1e3","auctionEndAmount":"1"}}}`,
		"missing end":         `{"quoteId":"q","toTokenAmount":"1","recommended_preset":"fast","presets":{"fast":{"auctionStartAmount":"1"}}}`,
		"negative amount":     `{"quoteId":"q","toTokenAmount":"-1","recommended_preset":"fast","presets":{"fast":{"auctionStartAmount":"1","auctionEndAmount":"1"}}}`,
		"missing quote id":    `{"toTokenAmount":"1","recommended_preset":"fast","presets":{"fast":{"auctionStartAmount":"1","auctionEndAmount":"1"}}}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(ethereum, types.FusionParams{}, decodeQuote(t, body), json.RawMessage(body), 18, true)
			require.Error(t, err)
			assert.True(t, errors.Is(err, commonerrors.ErrQuoteParse))
			rerr, ok := commonerrors.AsRouteError(err)
			require.True(t, ok)
			assert.False(t, rerr.Soft())
		})
	}
}

func TestSplitSignature(t *testing.T) {
	raw := make([]byte, 65)
	raw[0], raw[32] = 0xaa, 0xbb

	for _, v := range []byte{0, 27} {
		raw[64] = v
		sig, err := SplitSignature(raw)
		require.NoError(t, err)
		assert.Equal(t, byte(27), sig.V)
		assert.Equal(t, byte(0xaa), sig.R[0])
		assert.Equal(t, byte(0xbb), sig.S[0])
		assert.Len(t, sig.Bytes(), 65)
		assert.Equal(t, "0x", sig.Hex()[:2])
	}

	raw[64] = 1
	sig, err := SplitSignature(raw)
	require.NoError(t, err)
	assert.Equal(t, byte(28), sig.V)

	raw[64] = 29
	_, err = SplitSignature(raw)
	assert.True(t, errors.Is(err, commonerrors.ErrInvalidSignature))

	_, err = SplitSignature(raw[:64])
	assert.True(t, errors.Is(err, commonerrors.ErrInvalidSignature))
}

func TestWithDomainTypeDerivesMissingType(t *testing.T) {
	td := orderTypedData()
	delete(td.Types, domainTypeName)

	out := WithDomainType(td)
	_, mutated := td.Types[domainTypeName]
	assert.False(t, mutated)
	assert.Equal(t, []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}, out.Types[domainTypeName])

	_, _, err := apitypes.TypedDataAndHash(out)
	assert.NoError(t, err)
}

func orderTypedData() apitypes.TypedData {
	var td apitypes.TypedData
	body := `{
		"types": {
			"EIP712Domain": [
				{"name": "name", "type": "string"},
				{"name": "version", "type": "string"},
				{"name": "chainId", "type": "uint256"},
				{"name": "verifyingContract", "type": "address"}
			],
			"Order": [
				{"name": "salt", "type": "uint256"},
				{"name": "maker", "type": "address"},
				{"name": "receiver", "type": "address"},
				{"name": "makerAsset", "type": "address"},
				{"name": "takerAsset", "type": "address"},
				{"name": "makingAmount", "type": "uint256"},
				{"name": "takingAmount", "type": "uint256"},
				{"name": "makerTraits", "type": "uint256"}
			]
		},
		"primaryType": "Order",
		"domain": {
			"name": "1inch Aggregation Router",
			"version": "6",
			"chainId": "1",
			"verifyingContract": "0x111111125421ca6dc452d289314280a0f8842a65"
		},
		"message": {
			"salt": "102412815611787935992271873344279698181002251432500613888978521074851540062603",
			"maker": "0x00000000000000000000000000000000000000a1",
			"receiver": "0x0000000000000000000000000000000000000000",
			"makerAsset": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
			"takerAsset": "0xdac17f958d2ee523a2206206994597c13d831ec7",
			"makingAmount": "1000000",
			"takingAmount": "900",
			"makerTraits": "62419173104490761595518734106557662061518414611782227068396304425790442831872"
		}
	}`
	if err := json.Unmarshal([]byte(body), &td); err != nil {
		panic(err)
	}
	return td
}

type keySigner struct {
	key    *ecdsa.PrivateKey
	err    error
	signed int32
	hook   func()
}

func newKeySigner(t *testing.T) *keySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &keySigner{key: key}
}

func (s *keySigner) Address() common.Address { return crypto.PubkeyToAddress(s.key.PublicKey) }

func (s *keySigner) SignTypedData(_ context.Context, td apitypes.TypedData) ([]byte, error) {
	atomic.AddInt32(&s.signed, 1)
	if s.hook != nil {
		s.hook()
	}
	if s.err != nil {
		return nil, s.err
	}
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, err
	}
	return crypto.Sign(hash, s.key)
}

type relay struct {
	server      *httptest.Server
	buildStatus int
	submitCode  int
	submitted   int32
	lastSubmit  SubmitRequest
	buildBody   json.RawMessage
	buildQuery  map[string]string
}

func newRelay(t *testing.T, buildResponse string) *relay {
	r := &relay{buildStatus: http.StatusOK, submitCode: http.StatusCreated}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/quoter/v2.0/1/quote/build":
			assert.Equal(t, http.MethodPost, req.Method)
			body, _ := io.ReadAll(req.Body)
			r.buildBody = body
			r.buildQuery = map[string]string{}
			for k := range req.URL.Query() {
				r.buildQuery[k] = req.URL.Query().Get(k)
			}
			w.WriteHeader(r.buildStatus)
			if r.buildStatus == http.StatusOK {
				_, _ = w.Write([]byte(buildResponse))
			}
		case "/relayer/v2.0/1/order/submit":
			atomic.AddInt32(&r.submitted, 1)
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&r.lastSubmit))
			w.WriteHeader(r.submitCode)
			if r.submitCode >= 300 {
				_, _ = w.Write([]byte(`{"error":"invalid order"}`))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(r.server.Close)
	return r
}

func buildResponse(t *testing.T, withDomainType bool, inlineExtension bool) string {
	t.Helper()
	td := orderTypedData()
	if !withDomainType {
		delete(td.Types, domainTypeName)
	}
	extension := "0x000000cb"
	if inlineExtension {
		td.Message[extensionField] = extension
		extension = ""
	}
	body, err := json.Marshal(map[string]interface{}{
		"typedData": td,
		"orderHash": orderHash,
		"extension": extension,
	})
	require.NoError(t, err)
	return string(body)
}

func newPipeline(t *testing.T, r *relay) *Pipeline {
	api, err := aggregator.NewClient(r.server.URL, aggregator.WithLogger(quietLogger()))
	require.NoError(t, err)
	return NewPipeline(NewClient(api, quietLogger()), quietLogger(), 0)
}

func fusionQuote(t *testing.T) *types.Quote {
	params := types.FusionParams{
		FromTokenAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		ToTokenAddress:   "0xdac17f958d2ee523a2206206994597c13d831ec7",
		Amount:           "1000000",
	}
	quote, err := Normalize(ethereum, params, decodeQuote(t, quoteBody), json.RawMessage(quoteBody), 6, true)
	require.NoError(t, err)
	return quote
}

func recoverSigner(t *testing.T, signature string) common.Address {
	t.Helper()
	sig, err := hexutil.Decode(signature)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	require.Contains(t, []byte{27, 28}, sig[64])
	sig[64] -= 27

	hash, _, err := apitypes.TypedDataAndHash(orderTypedData())
	require.NoError(t, err)
	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(*pub)
}

func TestPipelineExecute(t *testing.T) {
	r := newRelay(t, buildResponse(t, false, false))
	signer := newKeySigner(t)

	result, err := newPipeline(t, r).Execute(context.Background(), fusionQuote(t), signer)
	require.NoError(t, err)

	assert.Equal(t, types.Fusion, result.Protocol)
	assert.Equal(t, orderHash, result.Hash)
	assert.Equal(t, orderHash, result.OrderHash)
	assert.Empty(t, result.RelayAcknowledgement)

	assert.JSONEq(t, quoteBody, string(r.buildBody))
	assert.Equal(t, "fast", r.buildQuery["preset"])
	assert.Equal(t, signer.Address().Hex(), r.buildQuery["walletAddress"])
	assert.Equal(t, "1000000", r.buildQuery["amount"])

	assert.Equal(t, int32(1), atomic.LoadInt32(&r.submitted))
	assert.Equal(t, "q-1", r.lastSubmit.QuoteID)
	assert.Equal(t, "0x000000cb", r.lastSubmit.Extension)
	assert.NotContains(t, r.lastSubmit.Order, extensionField)
	assert.Equal(t, "1000000", r.lastSubmit.Order["makingAmount"])
	assert.Equal(t, signer.Address(), recoverSigner(t, r.lastSubmit.Signature))
}

func TestPipelineMovesInlineExtensionOutOfSignedMessage(t *testing.T) {
	r := newRelay(t, buildResponse(t, true, true))
	signer := newKeySigner(t)

	_, err := newPipeline(t, r).Execute(context.Background(), fusionQuote(t), signer)
	require.NoError(t, err)

	assert.Equal(t, "0x000000cb", r.lastSubmit.Extension)
	assert.NotContains(t, r.lastSubmit.Order, extensionField)
	assert.Equal(t, signer.Address(), recoverSigner(t, r.lastSubmit.Signature))
}

func TestPipelineSubmissionRejectedAfterSigning(t *testing.T) {
	r := newRelay(t, buildResponse(t, true, false))
	r.submitCode = http.StatusBadRequest

	_, err := newPipeline(t, r).Execute(context.Background(), fusionQuote(t), newKeySigner(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, commonerrors.ErrSubmission))

	rerr, ok := commonerrors.AsRouteError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.StepSubmit, rerr.Step)
	assert.Equal(t, http.StatusBadRequest, rerr.StatusCode)
	assert.Equal(t, types.StateSigned, rerr.State)
	assert.True(t, rerr.PostSignature())
	assert.False(t, rerr.Soft())
	require.NotNil(t, rerr.Order)
	assert.Equal(t, orderHash, rerr.Order.OrderHash)
	assert.NotEmpty(t, rerr.Order.Signature)
	assert.Contains(t, err.Error(), "invalid order")
}

func TestPipelineSubmitsSignedOrderAfterCancellation(t *testing.T) {
	r := newRelay(t, buildResponse(t, true, false))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signer := newKeySigner(t)
	signer.hook = cancel

	result, err := newPipeline(t, r).Execute(ctx, fusionQuote(t), signer)
	require.NoError(t, err)
	assert.Equal(t, orderHash, result.OrderHash)
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.submitted))
}

func TestPipelineFailuresBeforeSigning(t *testing.T) {
	t.Run("build rejected", func(t *testing.T) {
		r := newRelay(t, "")
		r.buildStatus = http.StatusInternalServerError
		signer := newKeySigner(t)

		_, err := newPipeline(t, r).Execute(context.Background(), fusionQuote(t), signer)
		rerr, ok := commonerrors.AsRouteError(err)
		require.True(t, ok)
		assert.Equal(t, commonerrors.KindTransport, rerr.Kind)
		assert.Equal(t, commonerrors.StepBuild, rerr.Step)
		assert.Equal(t, types.StateQuoted, rerr.State)
		assert.False(t, rerr.PostSignature())
		assert.False(t, rerr.Soft())
		assert.Equal(t, int32(0), atomic.LoadInt32(&signer.signed))
	})

	t.Run("build without order hash", func(t *testing.T) {
		r := newRelay(t, `{"typedData":{"primaryType":"Order","message":{"salt":"1"}}}`)
		_, err := newPipeline(t, r).Execute(context.Background(), fusionQuote(t), newKeySigner(t))
		assert.True(t, errors.Is(err, commonerrors.ErrQuoteParse))
	})

	t.Run("signer refuses", func(t *testing.T) {
		r := newRelay(t, buildResponse(t, true, false))
		signer := newKeySigner(t)
		signer.err = errors.New("user rejected request")

		_, err := newPipeline(t, r).Execute(context.Background(), fusionQuote(t), signer)
		assert.True(t, errors.Is(err, commonerrors.ErrSigning))
		rerr, ok := commonerrors.AsRouteError(err)
		require.True(t, ok)
		assert.Equal(t, types.StateOrderBuilt, rerr.State)
		assert.Nil(t, rerr.Order)
		assert.Equal(t, int32(0), atomic.LoadInt32(&r.submitted))
	})

	t.Run("cancelled before build", func(t *testing.T) {
		r := newRelay(t, buildResponse(t, true, false))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newPipeline(t, r).Execute(ctx, fusionQuote(t), newKeySigner(t))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Nil(t, r.buildBody)
	})

	t.Run("quote without payload", func(t *testing.T) {
		r := newRelay(t, "")
		_, err := newPipeline(t, r).Execute(context.Background(), &types.Quote{Protocol: types.Fusion}, newKeySigner(t))
		assert.True(t, errors.Is(err, commonerrors.ErrNotExecutable))
	})
}

func TestClientQuoteAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/quoter/v2.0/1/quote/receive":
			assert.Equal(t, "0xa", q.Get("fromTokenAddress"))
			assert.Equal(t, "0xb", q.Get("toTokenAddress"))
			assert.Equal(t, "42", q.Get("amount"))
			assert.Equal(t, "0xc", q.Get("walletAddress"))
			assert.Equal(t, "true", q.Get("enableEstimate"))
			assert.Equal(t, "0.5", q.Get("slippage"))
			_, _ = w.Write([]byte(quoteBody))
		case "/orders/v2.0/1/order/status/" + orderHash:
			_, _ = w.Write([]byte(`{"orderHash":"` + orderHash + `","status":"pending"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	api, err := aggregator.NewClient(server.URL, aggregator.WithLogger(quietLogger()))
	require.NoError(t, err)
	client := NewClient(api, quietLogger())

	resp, raw, err := client.Quote(context.Background(), QuoteParams{
		ChainID:        1,
		Params:         types.FusionParams{FromTokenAddress: "0xa", ToTokenAddress: "0xb", Amount: "42", WalletAddress: "0xc"},
		EnableEstimate: true,
		Slippage:       "0.5",
	})
	require.NoError(t, err)
	assert.Equal(t, "q-1", resp.QuoteID)
	assert.Equal(t, "fast", resp.Recommended())
	require.NotNil(t, resp.Suggested)
	assert.True(t, *resp.Suggested)
	assert.True(t, resp.Slippage.Equal(decimal.RequireFromString("0.5")))
	assert.JSONEq(t, quoteBody, string(raw))

	status, err := client.OrderStatus(context.Background(), 1, orderHash)
	require.NoError(t, err)
	assert.Equal(t, "pending", status.Status)

	_, err = client.OrderStatus(context.Background(), 1, "0xmissing")
	rerr, ok := commonerrors.AsRouteError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, rerr.StatusCode)
	assert.Equal(t, commonerrors.StepStatus, rerr.Step)
}

func TestClientOrderStatusEscapesHashOnce(t *testing.T) {
	const hash = "0xabc def%2F"
	var gotPath, gotRawPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRawPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"orderHash":"` + orderHash + `","status":"filled"}`))
	}))
	defer server.Close()

	api, err := aggregator.NewClient(server.URL, aggregator.WithLogger(quietLogger()))
	require.NoError(t, err)

	status, err := NewClient(api, quietLogger()).OrderStatus(context.Background(), 1, hash)
	require.NoError(t, err)
	assert.Equal(t, "filled", status.Status)
	assert.Equal(t, "/orders/v2.0/1/order/status/"+hash, gotPath)
	assert.Equal(t, "/orders/v2.0/1/order/status/0xabc%20def%252F", gotRawPath)
}
