package app

import (
	"context"
	"errors"
	"time"

	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/tx/handler"
	"github.com/calehh/slotcurate/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
)

// getState starts the block state on top of the committed one at block
// time t.
func (app *SlotCurateApp) getState(t time.Time) (st *state.State) {
	st = app.db.NewState()
	st.SetTime(uint64(t.Unix()))
	app.st = st
	return
}

func (app *SlotCurateApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (stx *tx.SignedTx, h handler.TxHandler, err error) {
	stx, err = tx.UnmarshalSignedTx(txDat)
	if err != nil {
		return
	}
	h, ok := app.txHdlrs[stx.Type]
	if !ok {
		return nil, nil, tx.ErrUnsupportedTxType
	}
	err = st.Verify(stx, allowNonceGap)
	return
}

func (app *SlotCurateApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: handler.CodeOK}
	st := app.db.View()
	st.SetTime(uint64(time.Now().Unix()))
	stx, h, err := app.parseTx(st, check.Tx, true)
	if err != nil {
		app.logger.Info("parse tx fail", "err", err)
		res.Code = handler.ErrorCode(err)
		res.Codespace = types.ModuleName
		res.Log = err.Error()
		err = nil
		return
	}
	app.logger.Debug("check tx", "type", stx.Type, "sender", stx.Sender.Hex())
	res, err = h.Check(ctx, st, stx)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		res = &abcitypes.ResponseCheckTx{Code: handler.ErrorCode(err), Codespace: types.ModuleName, Log: err.Error()}
		err = nil
	}
	return
}

// apply runs one transaction on a copy of st and returns the copy when it
// succeeds.
func (app *SlotCurateApp) apply(ctx context.Context, st *state.State, txDat []byte, prepare bool) (next *state.State, res *abcitypes.ExecTxResult, err error) {
	next = st.Clone()
	stx, h, err := app.parseTx(next, txDat, false)
	if err != nil {
		return nil, nil, err
	}
	if prepare {
		res, err = h.Prepare(ctx, next, stx)
	} else {
		res, err = h.Process(ctx, next, stx)
	}
	if err != nil {
		return nil, nil, err
	}
	if res == nil {
		return nil, nil, ErrUnexpectedTxProcess
	}
	return
}

func (app *SlotCurateApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	st := app.getState(proposal.Time)
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		next, _, err := app.apply(ctx, st, stx, true)
		if err != nil {
			app.logger.Info("prepare tx fail", "err", err)
			continue
		}
		st = next
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *SlotCurateApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	app.logger.Info("ProcessProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	st := app.getState(proposal.Time)
	for _, stx := range proposal.Txs {
		next, _, err := app.apply(ctx, st, stx, false)
		if err != nil {
			app.logger.Error("process tx fail", "height", proposal.Height, "err", err)
			return res, nil
		}
		st = next
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

// finalize executes the block. A transaction that fails is reported in its
// result and leaves the state untouched.
func (app *SlotCurateApp) finalize(ctx context.Context, st *state.State, txs [][]byte) (next *state.State, res []*abcitypes.ExecTxResult) {
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		n, result, err := app.apply(ctx, st, stx, false)
		if err != nil {
			app.logger.Error("finalize tx fail", "index", i, "err", err)
			res[i] = &abcitypes.ExecTxResult{Code: handler.ErrorCode(err), Codespace: types.ModuleName, Log: err.Error()}
			continue
		}
		st = n
		res[i] = result
	}
	return st, res
}

func (app *SlotCurateApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.getState(req.Time)
	st, res := app.finalize(ctx, st, req.Txs)
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.st = st
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *SlotCurateApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
