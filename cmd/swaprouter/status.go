package main

import (
	"github.com/spf13/cobra"
)

func newStatusCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "status <chain> <order-hash>",
		Short: "Show the relayer status of a Fusion order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			status, err := a.router.OrderStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}
