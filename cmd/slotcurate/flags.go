package main

import "github.com/spf13/cobra"

const (
	FlagOverwrite = "overwrite"
	FlagChainID   = "chain-id"
	FlagHome      = "home"
	FlagBalance   = "balance"
)

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "slotcurate rpc url")
}

func keyFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "key", "k", "./config/owner_priv_key", "private key path")
}
