package handler

import (
	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

func itemRequestEvents(event *types.EventItemRequest, err error) ([]abcitypes.Event, error) {
	if err != nil {
		return nil, err
	}
	return []abcitypes.Event{types.EncodeEventItemRequest(event)}, nil
}

func NewAddItemTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "addItemTx", func(st *state.State, stx *tx.SignedTx, p *tx.AddItemTx) ([]abcitypes.Event, error) {
		return itemRequestEvents(st.AddItem(stx.Sender, stx.Amount(), p))
	})
}

func NewAddItemInFirstFreeSlotTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "addItemFirstTx", func(st *state.State, stx *tx.SignedTx, p *tx.AddItemInFirstFreeSlotTx) ([]abcitypes.Event, error) {
		return itemRequestEvents(st.AddItemInFirstFreeSlot(stx.Sender, stx.Amount(), p))
	})
}

func NewRemoveItemTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "removeItemTx", func(st *state.State, stx *tx.SignedTx, p *tx.RemoveItemTx) ([]abcitypes.Event, error) {
		return itemRequestEvents(st.RemoveItem(stx.Sender, stx.Amount(), p))
	})
}

func NewEditItemTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "editItemTx", func(st *state.State, stx *tx.SignedTx, p *tx.EditItemTx) ([]abcitypes.Event, error) {
		return itemRequestEvents(st.EditItem(stx.Sender, stx.Amount(), p))
	})
}

func NewEditItemInFirstFreeSlotTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "editItemFirstTx", func(st *state.State, stx *tx.SignedTx, p *tx.EditItemInFirstFreeSlotTx) ([]abcitypes.Event, error) {
		return itemRequestEvents(st.EditItemInFirstFreeSlot(stx.Sender, stx.Amount(), p))
	})
}
