package handler

import (
	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

func NewCreateSettingsTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "createSettingsTx", func(st *state.State, stx *tx.SignedTx, p *tx.CreateSettingsTx) ([]abcitypes.Event, error) {
		event, err := st.CreateSettings(stx.Sender, p)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventSettingsCreated(event)}, nil
	})
}

func NewCreateListTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "createListTx", func(st *state.State, stx *tx.SignedTx, p *tx.CreateListTx) ([]abcitypes.Event, error) {
		event, err := st.CreateList(stx.Sender, p)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventList(event)}, nil
	})
}

func NewUpdateListTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "updateListTx", func(st *state.State, stx *tx.SignedTx, p *tx.UpdateListTx) ([]abcitypes.Event, error) {
		event, err := st.UpdateList(stx.Sender, p)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventList(event)}, nil
	})
}
