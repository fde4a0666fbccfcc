package main

import (
	"fmt"

	"github.com/calehh/slotcurate/app"
	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Submit and resolve item requests",
}

type itemArguments struct {
	txArguments
	ListID     uint64
	SettingsID uint64
	Slot       uint64
	Data       string
	Item       string
	Reason     string
	Evidence   string
	Side       string
}

var itemArgs itemArguments

var itemAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Request to add an item in a given slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&itemArgs.txArguments, tx.TxTypeAddItem, &tx.AddItemTx{
			ListID:     itemArgs.ListID,
			SettingsID: itemArgs.SettingsID,
			Slot:       itemArgs.Slot,
			Data:       []byte(itemArgs.Data),
		})
	},
}

var itemAddFirstCmd = &cobra.Command{
	Use:   "add-first",
	Short: "Request to add an item in the first free slot from --slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&itemArgs.txArguments, tx.TxTypeAddItemInFirstFreeSlot, &tx.AddItemInFirstFreeSlotTx{
			ListID:     itemArgs.ListID,
			SettingsID: itemArgs.SettingsID,
			FromSlot:   itemArgs.Slot,
			Data:       []byte(itemArgs.Data),
		})
	},
}

var itemRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Request to remove the item in a slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&itemArgs.txArguments, tx.TxTypeRemoveItem, &tx.RemoveItemTx{
			Slot:       itemArgs.Slot,
			ListID:     itemArgs.ListID,
			SettingsID: itemArgs.SettingsID,
			Reason:     []byte(itemArgs.Reason),
		})
	},
}

var itemEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Request to replace the item in a slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&itemArgs.txArguments, tx.TxTypeEditItem, &tx.EditItemTx{
			Slot:       itemArgs.Slot,
			ListID:     itemArgs.ListID,
			SettingsID: itemArgs.SettingsID,
			Data:       []byte(itemArgs.Data),
		})
	},
}

var itemEditFirstCmd = &cobra.Command{
	Use:   "edit-first",
	Short: "Request to replace an item found from --slot on",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(common.FromHex(itemArgs.Item)) != common.HashLength {
			return fmt.Errorf("invalid item hash %q", itemArgs.Item)
		}
		return sendTx(&itemArgs.txArguments, tx.TxTypeEditItemInFirstFreeSlot, &tx.EditItemInFirstFreeSlotTx{
			ListID:     itemArgs.ListID,
			SettingsID: itemArgs.SettingsID,
			FromSlot:   itemArgs.Slot,
			Item:       common.HexToHash(itemArgs.Item),
			Data:       []byte(itemArgs.Data),
		})
	},
}

var itemExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Execute an unchallenged request after its period",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&itemArgs.txArguments, tx.TxTypeExecuteRequest, &tx.ExecuteRequestTx{Slot: itemArgs.Slot})
	},
}

var itemChallengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Challenge the pending request of a slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&itemArgs.txArguments, tx.TxTypeChallengeRequest, &tx.ChallengeRequestTx{
			Slot:     itemArgs.Slot,
			Evidence: itemArgs.Evidence,
		})
	},
}

var itemFundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Fund an appeal for one side of a dispute",
	RunE: func(cmd *cobra.Command, args []string) error {
		side, err := parseSide(itemArgs.Side)
		if err != nil {
			return err
		}
		return sendTx(&itemArgs.txArguments, tx.TxTypeFundAppeal, &tx.FundAppealTx{
			Slot: itemArgs.Slot,
			Side: uint8(side),
		})
	},
}

var itemSettleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Apply the outcome of a request and distribute its funds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&itemArgs.txArguments, tx.TxTypeSettle, &tx.SettleTx{Slot: itemArgs.Slot})
	},
}

var itemFeeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Show the challenge deposit or appeal threshold of a slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		var fees state.SlotFees
		if err := abciQuery(itemArgs.Url, "/slots/fees/", app.EncodeQueryIndex(itemArgs.Slot), &fees); err != nil {
			return err
		}
		return printJSON(&fees)
	},
}

func parseSide(s string) (types.Side, error) {
	switch s {
	case "requester":
		return types.SideRequester, nil
	case "challenger":
		return types.SideChallenger, nil
	}
	return types.SideNone, fmt.Errorf("invalid side %q, want requester or challenger", s)
}

func init() {
	payable := map[*cobra.Command]bool{
		itemAddCmd:       true,
		itemAddFirstCmd:  true,
		itemRemoveCmd:    true,
		itemEditCmd:      true,
		itemEditFirstCmd: true,
		itemChallengeCmd: true,
		itemFundCmd:      true,
	}
	for _, c := range []*cobra.Command{
		itemAddCmd, itemAddFirstCmd, itemRemoveCmd, itemEditCmd, itemEditFirstCmd,
		itemExecuteCmd, itemChallengeCmd, itemFundCmd, itemSettleCmd,
	} {
		txFlags(c, &itemArgs.txArguments, payable[c])
		c.Flags().Uint64VarP(&itemArgs.Slot, "slot", "s", 0, "slot index")
		itemCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{itemAddCmd, itemAddFirstCmd, itemRemoveCmd, itemEditCmd, itemEditFirstCmd} {
		c.Flags().Uint64VarP(&itemArgs.ListID, "list", "l", 0, "list id")
		c.Flags().Uint64Var(&itemArgs.SettingsID, "settings", 0, "settings id")
	}
	for _, c := range []*cobra.Command{itemAddCmd, itemAddFirstCmd, itemEditCmd, itemEditFirstCmd} {
		c.Flags().StringVar(&itemArgs.Data, "data", "", "item data")
	}
	urlFlag(itemFeeCmd, &itemArgs.Url)
	itemFeeCmd.Flags().Uint64VarP(&itemArgs.Slot, "slot", "s", 0, "slot index")
	itemCmd.AddCommand(itemFeeCmd)

	itemEditFirstCmd.Flags().StringVar(&itemArgs.Item, "item", "", "hash of the item to replace")
	itemRemoveCmd.Flags().StringVar(&itemArgs.Reason, "reason", "", "removal reason")
	itemChallengeCmd.Flags().StringVar(&itemArgs.Evidence, "evidence", "", "challenge evidence")
	itemFundCmd.Flags().StringVar(&itemArgs.Side, "side", "", "requester or challenger")
}
