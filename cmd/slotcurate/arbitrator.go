package main

import (
	"github.com/calehh/slotcurate/tx"
	"github.com/spf13/cobra"
)

var arbitratorCmd = &cobra.Command{
	Use:   "arbitrator",
	Short: "Court operations",
}

type ruleArguments struct {
	txArguments
	DisputeID uint64
	Ruling    uint64
}

var ruleArgs ruleArguments

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Give a ruling on a dispute (court owner only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&ruleArgs.txArguments, tx.TxTypeGiveRuling, &tx.GiveRulingTx{
			DisputeID: ruleArgs.DisputeID,
			Ruling:    ruleArgs.Ruling,
		})
	},
}

func init() {
	txFlags(ruleCmd, &ruleArgs.txArguments, false)
	ruleCmd.Flags().Uint64VarP(&ruleArgs.DisputeID, "dispute", "i", 0, "dispute id")
	ruleCmd.Flags().Uint64VarP(&ruleArgs.Ruling, "ruling", "r", 0, "0 refuse, 1 requester, 2 challenger")
	arbitratorCmd.AddCommand(ruleCmd)
}
