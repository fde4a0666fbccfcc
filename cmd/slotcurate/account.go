package main

import (
	"fmt"

	"github.com/calehh/slotcurate/crypto"
	"github.com/calehh/slotcurate/tx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type accountArguments struct {
	Url     string
	Address string
	Key     string
}

var accountArgs accountArguments

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the balance, nonce and unpaid credit of an account",
	RunE:  accountRun,
}

func init() {
	urlFlag(accountCmd, &accountArgs.Url)
	accountCmd.Flags().StringVarP(&accountArgs.Address, "address", "a", "", "account address, defaults to the key's")
	keyFlag(accountCmd, &accountArgs.Key)
}

func accountRun(cmd *cobra.Command, args []string) error {
	var addr common.Address
	if len(accountArgs.Address) > 0 {
		if !common.IsHexAddress(accountArgs.Address) {
			return fmt.Errorf("invalid address %v", accountArgs.Address)
		}
		addr = common.HexToAddress(accountArgs.Address)
	} else {
		key, err := crypto.LoadKeyFile(accountArgs.Key)
		if err != nil {
			return err
		}
		addr = key.Address()
	}
	act, err := queryAccount(accountArgs.Url, addr)
	if err != nil {
		return err
	}
	return printJSON(act)
}

type transferArguments struct {
	txArguments
	To     string
	Amount string
}

var transferArgs transferArguments

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer balance to another account",
	RunE:  transferRun,
}

func init() {
	txFlags(transferCmd, &transferArgs.txArguments, false)
	transferCmd.Flags().StringVarP(&transferArgs.To, "to", "t", "", "receiver address")
	transferCmd.Flags().StringVarP(&transferArgs.Amount, "amount", "a", "0", "amount to transfer")
}

func transferRun(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(transferArgs.To) {
		return fmt.Errorf("invalid receiver %v", transferArgs.To)
	}
	amount, err := parseAmount(transferArgs.Amount)
	if err != nil {
		return err
	}
	return sendTx(&transferArgs.txArguments, tx.TxTypeTransfer, &tx.TransferTx{
		To:     common.HexToAddress(transferArgs.To),
		Amount: amount,
	})
}

var withdrawArgs txArguments

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw payouts credited to the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&withdrawArgs, tx.TxTypeWithdraw, &tx.WithdrawTx{})
	},
}

func init() {
	txFlags(withdrawCmd, &withdrawArgs, false)
}
