package handler

import (
	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

func NewTransferTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "transferTx", func(st *state.State, stx *tx.SignedTx, p *tx.TransferTx) ([]abcitypes.Event, error) {
		event, err := st.Transfer(stx.Sender, p)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventTransfer(event)}, nil
	})
}

func NewWithdrawTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "withdrawTx", func(st *state.State, stx *tx.SignedTx, _ *tx.WithdrawTx) ([]abcitypes.Event, error) {
		event, err := st.Withdraw(stx.Sender)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventTransfer(event)}, nil
	})
}
