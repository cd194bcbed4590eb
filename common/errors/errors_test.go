package errors

import (
	"context"
	"testing"

	"github.com/ClipFinance/swap-router/common/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteErrorSoft(t *testing.T) {
	tests := []struct {
		name string
		err  *RouteError
		soft bool
	}{
		{"fusion quote transport", NewTransportError(types.Fusion, StepQuote, context.DeadlineExceeded), true},
		{"fusion quote status", NewStatusError(types.Fusion, StepQuote, 500, "internal"), true},
		{"fusion ineligible", NewIneligibleRouteError(types.Fusion, "not suggested"), true},
		{"fusion quote parse", NewQuoteParseError(types.Fusion, StepQuote, "toTokenAmount", nil), false},
		{"fusion build transport", NewTransportError(types.Fusion, StepBuild, context.Canceled), false},
		{"classic quote transport", NewTransportError(types.Classic, StepQuote, context.Canceled), false},
		{"fusion signing", NewSigningError(types.Fusion, errors.New("rejected")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.soft, tt.err.Soft())
		})
	}
}

func TestRouteErrorMatchesKindAndCause(t *testing.T) {
	err := errors.Wrap(NewTransportError(types.Classic, StepSwap, context.DeadlineExceeded), "classic quote")

	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrQuoteParse))

	rerr, ok := AsRouteError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, rerr.Kind)
	assert.Equal(t, StepSwap, rerr.Step)

	_, ok = AsRouteError(errors.New("plain"))
	assert.False(t, ok)
}

func TestRouteErrorMessage(t *testing.T) {
	err := NewStatusError(types.Fusion, StepSubmit, 400, `{"error":"bad order"}`)
	assert.Equal(t, `fusion submit: transport error (status 400): {"error":"bad order"}`, err.Error())

	parse := NewQuoteParseError(types.Classic, StepQuote, "dstAmount", errors.New("empty"))
	assert.Equal(t, `classic quote: quote parse error: invalid field "dstAmount": empty`, parse.Error())
	assert.True(t, errors.Is(parse, ErrQuoteParse))
}

func TestRouteErrorPostSignature(t *testing.T) {
	err := NewSubmissionError(types.Fusion, StepSubmit, errors.New("rejected"))
	assert.False(t, err.PostSignature())

	err.State = types.StateSigned
	assert.True(t, err.PostSignature())
	assert.True(t, errors.Is(err, ErrSubmission))
}

func TestGasEstimationError(t *testing.T) {
	err := NewGasEstimationError(errors.New("execution reverted"))
	assert.Equal(t, types.Classic, err.Protocol)
	assert.Equal(t, StepEstimateGas, err.Step)
	assert.True(t, errors.Is(err, ErrGasEstimation))
	assert.Equal(t, "execution reverted", errors.Cause(err).Error())
}
