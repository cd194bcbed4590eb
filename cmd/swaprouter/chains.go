package main

import (
	"github.com/spf13/cobra"
)

type chainView struct {
	Name          string `json:"name"`
	ChainID       uint64 `json:"chainId"`
	Spender       string `json:"spender"`
	FusionEnabled bool   `json:"fusionEnabled"`
	FeeModel      string `json:"feeModel"`
	HasRpc        bool   `json:"hasRpc"`
}

func newChainsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List the configured chains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			chains := a.registry.Chains()
			views := make([]chainView, 0, len(chains))
			for _, c := range chains {
				views = append(views, chainView{
					Name:          c.Name,
					ChainID:       c.ChainID,
					Spender:       c.Spender,
					FusionEnabled: c.FusionEnabled,
					FeeModel:      c.FeeModel.String(),
					HasRpc:        c.RpcUrl != "",
				})
			}
			return printJSON(cmd.OutOrStdout(), views)
		},
	}
}
