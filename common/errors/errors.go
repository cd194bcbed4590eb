package errors

import (
	"fmt"

	"github.com/ClipFinance/swap-router/common/types"
	"github.com/pkg/errors"
)

var (
	ErrChainNotFound     = errors.New("chain not found")
	ErrInvalidChainID    = errors.New("invalid chain id")
	ErrDatabaseConnect   = errors.New("failed to connect to database")
	ErrInvalidConfig     = errors.New("invalid chain configuration")
	ErrChainExists       = errors.New("chain already exists in registry")
	ErrNotExecutable     = errors.New("quote has no executable payload")
	ErrUnsupportedQuote  = errors.New("unsupported quote protocol")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrSignerNotProvided = errors.New("signer not provided")
	ErrInvalidRequest    = errors.New("invalid swap request")

	// ErrTransport matches any RouteError of kind KindTransport.
	ErrTransport = errors.New("transport error")
	// ErrQuoteParse matches any RouteError of kind KindQuoteParse.
	ErrQuoteParse = errors.New("quote parse error")
	// ErrIneligibleRoute matches any RouteError of kind KindIneligibleRoute.
	ErrIneligibleRoute = errors.New("ineligible route")
	// ErrGasEstimation matches any RouteError of kind KindGasEstimation.
	ErrGasEstimation = errors.New("gas estimation failed")
	// ErrSigning matches any RouteError of kind KindSigning.
	ErrSigning = errors.New("signing failed")
	// ErrSubmission matches any RouteError of kind KindSubmission.
	ErrSubmission = errors.New("submission failed")
)

// Kind classifies a RouteError.
type Kind string

const (
	KindTransport       Kind = "TRANSPORT"
	KindQuoteParse      Kind = "QUOTE_PARSE"
	KindIneligibleRoute Kind = "INELIGIBLE_ROUTE"
	KindGasEstimation   Kind = "GAS_ESTIMATION"
	KindSigning         Kind = "SIGNING"
	KindSubmission      Kind = "SUBMISSION"
)

// Steps reported in RouteError.Step.
const (
	StepQuote       = "quote"
	StepSwap        = "swap"
	StepEstimateGas = "estimate_gas"
	StepSend        = "send"
	StepBuild       = "build"
	StepSign        = "sign"
	StepSubmit      = "submit"
	StepStatus      = "status"
)

// RouteError is returned by every quoting and execution step.
//
// Fields:
// - Kind: the error classification.
// - Protocol: the protocol the failing step belongs to.
// - Step: the failing step.
// - StatusCode: the upstream HTTP status, zero when no response was received.
// - State: the last Fusion pipeline state reached before the failure, empty for Classic.
// - Order: the signed Fusion order when submission failed after signing.
// - Err: the underlying error.
type RouteError struct {
	Kind       Kind
	Protocol   types.Protocol
	Step       string
	StatusCode int
	State      types.OrderState
	Order      *types.Order
	Err        error
}

func (e *RouteError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Protocol, e.Step, e.kindError())
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RouteError) Unwrap() error {
	return e.Err
}

// Cause returns the underlying error for github.com/pkg/errors.Cause.
func (e *RouteError) Cause() error {
	return e.Err
}

// Is matches the kind sentinel of the error.
func (e *RouteError) Is(target error) bool {
	return target == e.kindError()
}

// Soft reports whether the error should trigger a fallback to Classic instead of propagating.
// Only transport and ineligibility failures of the Fusion quote step are soft.
func (e *RouteError) Soft() bool {
	if e.Protocol != types.Fusion || e.Step != StepQuote {
		return false
	}
	return e.Kind == KindTransport || e.Kind == KindIneligibleRoute
}

// PostSignature reports whether the failure happened after a Fusion order was signed.
func (e *RouteError) PostSignature() bool {
	return e.State == types.StateSigned
}

func (e *RouteError) kindError() error {
	switch e.Kind {
	case KindTransport:
		return ErrTransport
	case KindQuoteParse:
		return ErrQuoteParse
	case KindIneligibleRoute:
		return ErrIneligibleRoute
	case KindGasEstimation:
		return ErrGasEstimation
	case KindSigning:
		return ErrSigning
	case KindSubmission:
		return ErrSubmission
	default:
		return errors.New(string(e.Kind))
	}
}

// NewTransportError creates a transport error for a failed upstream round trip.
func NewTransportError(protocol types.Protocol, step string, err error) *RouteError {
	return &RouteError{Kind: KindTransport, Protocol: protocol, Step: step, Err: err}
}

// NewStatusError creates a transport error for a non-success upstream response.
func NewStatusError(protocol types.Protocol, step string, statusCode int, body string) *RouteError {
	return &RouteError{
		Kind:       KindTransport,
		Protocol:   protocol,
		Step:       step,
		StatusCode: statusCode,
		Err:        errors.New(body),
	}
}

// NewQuoteParseError creates a parse error for a missing or malformed field.
func NewQuoteParseError(protocol types.Protocol, step, field string, err error) *RouteError {
	cause := errors.Errorf("invalid field %q", field)
	if err != nil {
		cause = errors.Wrapf(err, "invalid field %q", field)
	}
	return &RouteError{Kind: KindQuoteParse, Protocol: protocol, Step: step, Err: cause}
}

// NewIneligibleRouteError creates an error for a quote the provider marks as unsuitable.
func NewIneligibleRouteError(protocol types.Protocol, reason string) *RouteError {
	return &RouteError{Kind: KindIneligibleRoute, Protocol: protocol, Step: StepQuote, Err: errors.New(reason)}
}

// NewGasEstimationError creates an error for a failed Classic gas estimation.
func NewGasEstimationError(err error) *RouteError {
	return &RouteError{Kind: KindGasEstimation, Protocol: types.Classic, Step: StepEstimateGas, Err: err}
}

// NewSigningError creates an error for a typed-data signature the signer refused or failed to produce.
func NewSigningError(protocol types.Protocol, err error) *RouteError {
	return &RouteError{Kind: KindSigning, Protocol: protocol, Step: StepSign, Err: err}
}

// NewSubmissionError creates an error for a rejected final submission.
func NewSubmissionError(protocol types.Protocol, step string, err error) *RouteError {
	return &RouteError{Kind: KindSubmission, Protocol: protocol, Step: step, Err: err}
}

// AsRouteError returns err as a *RouteError when it is one.
func AsRouteError(err error) (*RouteError, bool) {
	var rerr *RouteError
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}
