package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/calehh/slotcurate/tx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage request settings",
}

type settingsArguments struct {
	txArguments
	Stake              string
	RequestPeriod      uint64
	FundingPeriod      uint64
	Multiplier         uint64
	ExtraData          string
	AddMetaEvidence    string
	RemoveMetaEvidence string
	EditMetaEvidence   string
}

var settingsArgs settingsArguments

var settingsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an immutable settings record",
	RunE:  settingsCreateRun,
}

func init() {
	f := settingsCreateCmd.Flags()
	txFlags(settingsCreateCmd, &settingsArgs.txArguments, false)
	f.StringVar(&settingsArgs.Stake, "stake", "1000000000", "requester stake")
	f.Uint64Var(&settingsArgs.RequestPeriod, "request-period", 3600, "seconds a request stays open to challenge")
	f.Uint64Var(&settingsArgs.FundingPeriod, "funding-period", 3600, "seconds after a ruling to fund an appeal")
	f.Uint64Var(&settingsArgs.Multiplier, "multiplier", 10000, "appeal multiplier in basis points")
	f.StringVar(&settingsArgs.ExtraData, "extra-data", "", "hex arbitrator extra data")
	f.StringVar(&settingsArgs.AddMetaEvidence, "add-evidence", "", "meta evidence for add requests")
	f.StringVar(&settingsArgs.RemoveMetaEvidence, "remove-evidence", "", "meta evidence for remove requests")
	f.StringVar(&settingsArgs.EditMetaEvidence, "edit-evidence", "", "meta evidence for edit requests")
	settingsCmd.AddCommand(settingsCreateCmd)
}

func settingsCreateRun(cmd *cobra.Command, args []string) error {
	stake, err := parseAmount(settingsArgs.Stake)
	if err != nil {
		return err
	}
	extra, err := hex.DecodeString(strings.TrimPrefix(settingsArgs.ExtraData, "0x"))
	if err != nil {
		return fmt.Errorf("invalid extra data: %w", err)
	}
	return sendTx(&settingsArgs.txArguments, tx.TxTypeCreateSettings, &tx.CreateSettingsTx{
		RequesterStake:      stake,
		RequestPeriod:       settingsArgs.RequestPeriod,
		FundingPeriod:       settingsArgs.FundingPeriod,
		AppealMultiplier:    settingsArgs.Multiplier,
		ArbitratorExtraData: extra,
		AddMetaEvidence:     settingsArgs.AddMetaEvidence,
		RemoveMetaEvidence:  settingsArgs.RemoveMetaEvidence,
		EditMetaEvidence:    settingsArgs.EditMetaEvidence,
	})
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Manage lists",
}

type listArguments struct {
	txArguments
	ListID     uint64
	SettingsID uint64
	Governor   string
	Metadata   string
}

var listArgs listArguments

var listCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a list",
	RunE: func(cmd *cobra.Command, args []string) error {
		governor, err := governorAddress(listArgs.Governor)
		if err != nil {
			return err
		}
		return sendTx(&listArgs.txArguments, tx.TxTypeCreateList, &tx.CreateListTx{
			Governor:   governor,
			SettingsID: listArgs.SettingsID,
			Metadata:   listArgs.Metadata,
		})
	},
}

var listUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the governor, settings and metadata of a list",
	RunE: func(cmd *cobra.Command, args []string) error {
		governor, err := governorAddress(listArgs.Governor)
		if err != nil {
			return err
		}
		return sendTx(&listArgs.txArguments, tx.TxTypeUpdateList, &tx.UpdateListTx{
			ListID:     listArgs.ListID,
			SettingsID: listArgs.SettingsID,
			Governor:   governor,
			Metadata:   listArgs.Metadata,
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{listCreateCmd, listUpdateCmd} {
		txFlags(c, &listArgs.txArguments, false)
		c.Flags().Uint64VarP(&listArgs.SettingsID, "settings", "s", 0, "settings id")
		c.Flags().StringVarP(&listArgs.Governor, "governor", "g", "", "governor address")
		c.Flags().StringVarP(&listArgs.Metadata, "metadata", "m", "", "list metadata")
		listCmd.AddCommand(c)
	}
	listUpdateCmd.Flags().Uint64VarP(&listArgs.ListID, "list", "l", 0, "list id")
}

func governorAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid governor %q", s)
	}
	return common.HexToAddress(s), nil
}
