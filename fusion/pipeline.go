package fusion

import (
	"context"
	"time"

	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultSubmitTimeout bounds the relayer submission of a signed order. Submission
	// ignores caller cancellation, so this is the only limit once an order is signed.
	DefaultSubmitTimeout = 30 * time.Second

	domainTypeName = "EIP712Domain"
	extensionField = "extension"
)

// OrderSigner is the capability the pipeline needs from a wallet: the maker address and
// an EIP-712 signature over the built order.
type OrderSigner interface {
	Address() common.Address
	types.TypedDataSigner
}

// Pipeline drives a Fusion quote through order build, signing and submission.
type Pipeline struct {
	client        *Client
	logger        *logrus.Logger
	submitTimeout time.Duration
}

// NewPipeline creates a Fusion order pipeline.
//
// Parameters:
// - client: the Fusion API client.
// - logger: the logger.
// - submitTimeout: the submission bound after signing; zero selects DefaultSubmitTimeout.
//
// Returns:
// - *Pipeline: the pipeline.
func NewPipeline(client *Client, logger *logrus.Logger, submitTimeout time.Duration) *Pipeline {
	if submitTimeout <= 0 {
		submitTimeout = DefaultSubmitTimeout
	}
	return &Pipeline{client: client, logger: logger, submitTimeout: submitTimeout}
}

// Execute builds, signs and submits the order of a Fusion quote.
//
// States advance strictly QUOTED, ORDER_BUILT, SIGNED, SUBMITTED. A failure carries the
// last state reached in RouteError.State. Once the order is signed it is always submitted,
// even when ctx is cancelled, and a rejected submission returns the signed order in
// RouteError.Order so the caller can submit it later.
//
// Parameters:
// - ctx: the context for managing the request.
// - quote: a Fusion quote with an executable payload.
// - signer: the order maker.
//
// Returns:
// - *types.ExecutionResult: the order hash and relayer acknowledgement.
// - error: a *errors.RouteError, or ErrNotExecutable for quotes without payload.
func (p *Pipeline) Execute(ctx context.Context, quote *types.Quote, signer OrderSigner) (*types.ExecutionResult, error) {
	if quote == nil || quote.Protocol != types.Fusion {
		return nil, commonerrors.ErrUnsupportedQuote
	}
	if quote.Fusion == nil {
		return nil, commonerrors.ErrNotExecutable
	}
	if signer == nil {
		return nil, commonerrors.ErrSignerNotProvided
	}

	payload := quote.Fusion
	maker := signer.Address().Hex()
	logger := p.logger.WithFields(logrus.Fields{
		"chain":    quote.Chain,
		"protocol": types.Fusion,
		"maker":    maker,
	})

	state := types.StateQuoted
	if err := ctx.Err(); err != nil {
		return nil, p.fail(logger, state, commonerrors.NewTransportError(types.Fusion, commonerrors.StepBuild, err))
	}

	built, err := p.client.BuildOrder(ctx, payload, maker)
	if err != nil {
		return nil, p.fail(logger, state, err)
	}
	if built.OrderHash == "" {
		return nil, p.fail(logger, state, commonerrors.NewQuoteParseError(types.Fusion, commonerrors.StepBuild, "orderHash", nil))
	}
	if built.TypedData.PrimaryType == "" || len(built.TypedData.Message) == 0 {
		return nil, p.fail(logger, state, commonerrors.NewQuoteParseError(types.Fusion, commonerrors.StepBuild, "typedData", nil))
	}

	typedData := WithDomainType(built.TypedData)
	extension := built.Extension
	if inline, ok := typedData.Message[extensionField].(string); ok && extension == "" {
		extension = inline
	}
	typedData.Message = messageWithoutExtension(typedData.Message)

	order := &types.Order{
		TypedData: typedData,
		OrderHash: built.OrderHash,
		Extension: extension,
		QuoteID:   payload.Preset.QuoteID,
	}
	state = types.StateOrderBuilt
	logger = logger.WithField("order_hash", order.OrderHash)

	if err := ctx.Err(); err != nil {
		return nil, p.fail(logger, state, commonerrors.NewSigningError(types.Fusion, err))
	}

	raw, err := signer.SignTypedData(ctx, order.TypedData)
	if err != nil {
		return nil, p.fail(logger, state, commonerrors.NewSigningError(types.Fusion, err))
	}
	sig, err := SplitSignature(raw)
	if err != nil {
		return nil, p.fail(logger, state, commonerrors.NewSigningError(types.Fusion, err))
	}
	order.Signature = sig.Hex()
	state = types.StateSigned

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.submitTimeout)
	defer cancel()

	ack, err := p.client.SubmitOrder(submitCtx, payload.ChainID, SubmitRequest{
		Order:     order.TypedData.Message,
		Signature: order.Signature,
		QuoteID:   order.QuoteID,
		Extension: order.Extension,
	})
	if err != nil {
		return nil, p.fail(logger, state, submissionError(order, err))
	}

	logger.WithField("state", types.StateSubmitted).Info("Fusion order submitted")

	return &types.ExecutionResult{
		Protocol:             types.Fusion,
		Hash:                 order.OrderHash,
		OrderHash:            order.OrderHash,
		RelayAcknowledgement: ack,
	}, nil
}

// fail stamps the last reached state on err and logs the failed transition.
func (p *Pipeline) fail(logger *logrus.Entry, state types.OrderState, err error) error {
	rerr, ok := commonerrors.AsRouteError(err)
	if !ok {
		rerr = commonerrors.NewSubmissionError(types.Fusion, "", err)
	}
	stamped := *rerr
	stamped.State = state

	logger.WithFields(logrus.Fields{
		"state": state,
		"step":  stamped.Step,
		"to":    types.StateFailed,
	}).WithError(stamped.Err).Error("Fusion order failed")
	return &stamped
}

func submissionError(order *types.Order, err error) error {
	out := &commonerrors.RouteError{
		Kind:     commonerrors.KindSubmission,
		Protocol: types.Fusion,
		Step:     commonerrors.StepSubmit,
		Order:    order,
		Err:      err,
	}
	if rerr, ok := commonerrors.AsRouteError(err); ok {
		out.StatusCode = rerr.StatusCode
		out.Err = rerr.Err
	}
	return out
}

// messageWithoutExtension returns a copy of the order message without its extension field.
// The extension is not part of the signed struct and the relayer takes it separately.
func messageWithoutExtension(message apitypes.TypedDataMessage) apitypes.TypedDataMessage {
	out := make(apitypes.TypedDataMessage, len(message))
	for k, v := range message {
		if k == extensionField {
			continue
		}
		out[k] = v
	}
	return out
}

// WithDomainType returns td with the EIP712Domain type derived from its domain when the
// provider omitted it. Hashing typed data requires the domain type to be declared.
func WithDomainType(td apitypes.TypedData) apitypes.TypedData {
	if _, ok := td.Types[domainTypeName]; ok {
		return td
	}

	var fields []apitypes.Type
	if td.Domain.Name != "" {
		fields = append(fields, apitypes.Type{Name: "name", Type: "string"})
	}
	if td.Domain.Version != "" {
		fields = append(fields, apitypes.Type{Name: "version", Type: "string"})
	}
	if td.Domain.ChainId != nil {
		fields = append(fields, apitypes.Type{Name: "chainId", Type: "uint256"})
	}
	if td.Domain.VerifyingContract != "" {
		fields = append(fields, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	if td.Domain.Salt != "" {
		fields = append(fields, apitypes.Type{Name: "salt", Type: "bytes32"})
	}

	typesCopy := make(apitypes.Types, len(td.Types)+1)
	for k, v := range td.Types {
		typesCopy[k] = v
	}
	typesCopy[domainTypeName] = fields
	td.Types = typesCopy
	return td
}
