package handler

import (
	"github.com/calehh/slotcurate/arbitrator"
	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

func NewExecuteRequestTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "executeRequestTx", func(st *state.State, stx *tx.SignedTx, p *tx.ExecuteRequestTx) ([]abcitypes.Event, error) {
		event, err := st.ExecuteRequest(stx.Sender, p)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventRequestExecuted(event)}, nil
	})
}

func NewChallengeRequestTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "challengeRequestTx", func(st *state.State, stx *tx.SignedTx, p *tx.ChallengeRequestTx) ([]abcitypes.Event, error) {
		event, err := st.ChallengeRequest(stx.Sender, stx.Amount(), p)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventRequestChallenged(event)}, nil
	})
}

func NewFundAppealTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "fundAppealTx", func(st *state.State, stx *tx.SignedTx, p *tx.FundAppealTx) ([]abcitypes.Event, error) {
		event, err := st.FundAppeal(stx.Sender, stx.Amount(), p)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventAppealFunded(event)}, nil
	})
}

func NewSettleTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "settleTx", func(st *state.State, stx *tx.SignedTx, p *tx.SettleTx) ([]abcitypes.Event, error) {
		event, err := st.Settle(stx.Sender, p)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventRequestSettled(event)}, nil
	})
}

// NewGiveRulingTxHandler lets the court owner rule; the court forwards the
// ruling to the registry.
func NewGiveRulingTxHandler(logger cmtlog.Logger) TxHandler {
	return newTxHandler(logger, "giveRulingTx", func(st *state.State, stx *tx.SignedTx, p *tx.GiveRulingTx) ([]abcitypes.Event, error) {
		court := arbitrator.New(st.ArbitratorStore())
		event, err := court.GiveRuling(stx.Sender, p.DisputeID, p.Ruling, st)
		if err != nil {
			return nil, err
		}
		if event == nil {
			return nil, nil
		}
		return []abcitypes.Event{types.EncodeEventDisputeRuled(event)}, nil
	})
}
