package main

import (
	"math/big"

	"github.com/ClipFinance/swap-router/common/types"
	"github.com/ClipFinance/swap-router/router"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// requestFlags are the swap request flags shared by quote and swap.
type requestFlags struct {
	chain    string
	from     string
	to       string
	amount   string
	user     string
	slippage string
	decimals int32
}

func (f *requestFlags) register(cmd *cobra.Command, withUser bool) {
	cmd.Flags().StringVar(&f.chain, "chain", "", "Chain name, see the chains command (required)")
	cmd.Flags().StringVar(&f.from, "from", "", "Source token address, the zero address for the native currency (required)")
	cmd.Flags().StringVar(&f.to, "to", "", "Destination token address, the zero address for the native currency (required)")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Source amount in base units (required)")
	cmd.Flags().StringVar(&f.slippage, "slippage", "0.01", "Slippage tolerance as a fraction")
	cmd.Flags().Int32Var(&f.decimals, "to-decimals", 18, "Decimals of the destination token")
	if withUser {
		cmd.Flags().StringVar(&f.user, "user", "", "Requester address; omit for a price-only quote")
	}
	for _, name := range []string{"chain", "from", "to", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (f *requestFlags) request(user common.Address) (types.SwapRequest, error) {
	if !common.IsHexAddress(f.from) {
		return types.SwapRequest{}, errors.Errorf("invalid source token %q", f.from)
	}
	if !common.IsHexAddress(f.to) {
		return types.SwapRequest{}, errors.Errorf("invalid destination token %q", f.to)
	}
	amount, ok := new(big.Int).SetString(f.amount, 10)
	if !ok {
		return types.SwapRequest{}, errors.Errorf("invalid amount %q", f.amount)
	}
	slippage, err := decimal.NewFromString(f.slippage)
	if err != nil {
		return types.SwapRequest{}, errors.Wrapf(err, "invalid slippage %q", f.slippage)
	}

	return types.SwapRequest{
		Chain:           f.chain,
		FromToken:       common.HexToAddress(f.from),
		ToToken:         common.HexToAddress(f.to),
		Amount:          amount,
		UserAddress:     user,
		Slippage:        slippage,
		ToTokenDecimals: f.decimals,
	}, nil
}

type quoteView struct {
	Protocol             string       `json:"protocol"`
	Chain                string       `json:"chain"`
	AmountReturned       string       `json:"amountReturned"`
	EstimatedGas         *uint64      `json:"estimatedGas"`
	TokenApprovalAddress string       `json:"tokenApprovalAddress"`
	Logo                 string       `json:"logo"`
	Executable           bool         `json:"executable"`
	Tx                   types.TxView `json:"tx"`
}

func newQuoteView(q *types.Quote) quoteView {
	return quoteView{
		Protocol:             q.Protocol.String(),
		Chain:                q.Chain,
		AmountReturned:       q.AmountReturned.String(),
		EstimatedGas:         q.EstimatedGas,
		TokenApprovalAddress: q.TokenApprovalAddress,
		Logo:                 q.Logo,
		Executable:           q.Executable(),
		Tx:                   router.GetTx(q),
	}
}

func newQuoteCmd(load loader) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap without executing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := types.ZeroAddress
			if flags.user != "" {
				if !common.IsHexAddress(flags.user) {
					return errors.Errorf("invalid user address %q", flags.user)
				}
				user = common.HexToAddress(flags.user)
			}
			req, err := flags.request(user)
			if err != nil {
				return err
			}

			a, err := load(cmd)
			if err != nil {
				return err
			}

			quote, err := a.router.Route(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), newQuoteView(quote))
		},
	}
	flags.register(cmd, true)
	return cmd
}
