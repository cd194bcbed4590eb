package router

import "github.com/ClipFinance/swap-router/common/types"

// GetTx returns the display view of the transaction behind quote. Classic quotes expose the
// built transaction, Fusion quotes only the token pair. A quote without executable payload
// yields an empty view.
func GetTx(quote *types.Quote) types.TxView {
	if !quote.Executable() {
		return types.TxView{}
	}

	switch quote.Protocol {
	case types.Classic:
		tx := quote.Classic.Tx
		return types.TxView{
			From:  tx.From,
			To:    tx.To,
			Data:  tx.Data,
			Value: tx.Value,
		}
	case types.Fusion:
		return types.TxView{
			From: quote.Fusion.Params.FromTokenAddress,
			To:   quote.Fusion.Params.ToTokenAddress,
		}
	default:
		return types.TxView{}
	}
}

// GetTxData returns the calldata of a Classic quote's transaction, or an empty string.
func GetTxData(quote *types.Quote) string {
	if quote == nil || quote.Protocol != types.Classic || quote.Classic == nil {
		return ""
	}
	return quote.Classic.Tx.Data
}
