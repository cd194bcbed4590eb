package fusion

import (
	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

const signatureLength = 65

// Signature is a recoverable secp256k1 signature split into its components.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// SplitSignature splits a 65-byte r || s || v signature and normalizes v to 27 or 28.
// Signers return v either as the recovery id (0/1) or already offset by 27.
func SplitSignature(sig []byte) (*Signature, error) {
	if len(sig) != signatureLength {
		return nil, errors.Wrapf(commonerrors.ErrInvalidSignature, "expected %d bytes, got %d", signatureLength, len(sig))
	}

	out := &Signature{}
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])

	switch v := sig[64]; v {
	case 0, 1:
		out.V = v + 27
	case 27, 28:
		out.V = v
	default:
		return nil, errors.Wrapf(commonerrors.ErrInvalidSignature, "invalid recovery byte %d", v)
	}
	return out, nil
}

// Bytes returns the signature as r || s || v.
func (s *Signature) Bytes() []byte {
	out := make([]byte, 0, signatureLength)
	out = append(out, s.R[:]...)
	out = append(out, s.S[:]...)
	return append(out, s.V)
}

// Hex returns the 0x-prefixed r || s || v encoding the relayer expects.
func (s *Signature) Hex() string {
	return hexutil.Encode(s.Bytes())
}
