package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calehh/slotcurate/app"
	"github.com/calehh/slotcurate/crypto"
	"github.com/calehh/slotcurate/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

// txArguments are the flags shared by every command that sends a
// transaction.
type txArguments struct {
	Url   string
	Key   string
	Nonce uint64
	Value string
}

func txFlags(cmd *cobra.Command, args *txArguments, payable bool) {
	urlFlag(cmd, &args.Url)
	keyFlag(cmd, &args.Key)
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce, queried when 0")
	if payable {
		cmd.Flags().StringVarP(&args.Value, "value", "v", "0", "amount sent with the transaction")
	}
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func newClient(url string) (*http.HTTP, error) {
	return http.New(url, "/websocket")
}

func queryAccount(url string, addr common.Address) (*app.AccountInfo, error) {
	var info app.AccountInfo
	if err := abciQuery(url, "/accounts/", addr.Bytes(), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func abciQuery(url, path string, data []byte, out any) error {
	cli, err := newClient(url)
	if err != nil {
		return err
	}
	res, err := cli.ABCIQuery(context.Background(), path, data)
	if err != nil {
		return err
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %v code %v: %v", path, res.Response.Code, res.Response.Log)
	}
	return json.Unmarshal(res.Response.Value, out)
}

// sendTx signs the payload with the key at args.Key and broadcasts it.
func sendTx(args *txArguments, tp tx.TxType, payload any) error {
	key, err := crypto.LoadKeyFile(args.Key)
	if err != nil {
		return err
	}
	value, err := parseAmount(args.Value)
	if err != nil {
		return err
	}
	cli, err := newClient(args.Url)
	if err != nil {
		return err
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	nonce := args.Nonce
	if nonce == 0 {
		act, err := queryAccount(args.Url, key.Address())
		if err != nil {
			return err
		}
		nonce = act.Nonce
	}
	stx := &tx.SignedTx{
		Version: tx.TxVersion1,
		Type:    tp,
		Nonce:   nonce,
		Sender:  key.Address(),
		Value:   value,
		Tx:      payload,
	}
	if err := key.SignTx(gres.Genesis.ChainID, stx); err != nil {
		return err
	}
	dat, err := tx.MarshalSignedTx(stx)
	if err != nil {
		return err
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	if res.Code != 0 {
		return fmt.Errorf("tx %v rejected code %v: %v", tp, res.Code, res.Log)
	}
	fmt.Printf("%v tx %v\n", tp, res.Hash)
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
