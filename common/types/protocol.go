package types

// Protocol identifies which of the aggregator's two swap protocols produced a quote.
type Protocol string

const (
	// Classic is the direct on-chain protocol: the aggregator returns a built transaction
	// that the user submits and pays gas for.
	Classic Protocol = "classic"
	// Fusion is the intent-based protocol: the user signs an order that the relay
	// network fills and sponsors gas for.
	Fusion Protocol = "fusion"
	// UnknownProtocol marks a quote that neither executor accepts.
	UnknownProtocol Protocol = "unknown"
)

// String converts Protocol to string representation.
func (p Protocol) String() string {
	return string(p)
}

// OrderState is a step of the Fusion order pipeline.
type OrderState string

const (
	// StateQuoted is the state of an order that only has a quote.
	StateQuoted OrderState = "QUOTED"
	// StateOrderBuilt is the state of an order after the provider built the unsigned typed data.
	StateOrderBuilt OrderState = "ORDER_BUILT"
	// StateSigned is the state of an order that carries a signature but was not accepted by the relay yet.
	StateSigned OrderState = "SIGNED"
	// StateSubmitted is the terminal state of an order accepted by the relay.
	StateSubmitted OrderState = "SUBMITTED"
	// StateFailed is the terminal state of an order that could not be submitted.
	StateFailed OrderState = "FAILED"
)

// String converts OrderState to string representation.
func (s OrderState) String() string {
	return string(s)
}
