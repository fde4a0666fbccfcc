package handler

import (
	"context"
	"errors"

	"github.com/calehh/slotcurate/arbitrator"
	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type TxHandler interface {
	Check(ctx context.Context, st *state.State, stx *tx.SignedTx) (res *abcitypes.ResponseCheckTx, err error)
	Prepare(ctx context.Context, st *state.State, stx *tx.SignedTx) (res *abcitypes.ExecTxResult, err error)
	Process(ctx context.Context, st *state.State, stx *tx.SignedTx) (res *abcitypes.ExecTxResult, err error)
}

// Result codes. 1 is any error without a dedicated code.
const (
	CodeOK                           uint32 = 0
	CodeGeneric                      uint32 = 1
	CodeInvalidState                 uint32 = 10
	CodeSlotNotAvailable             uint32 = 11
	CodeRequestNotReady              uint32 = 12
	CodeNothingToSettle              uint32 = 13
	CodeInsufficientStake            uint32 = 14
	CodeInsufficientChallengeDeposit uint32 = 15
	CodeNotGovernor                  uint32 = 16
	CodeUnauthorized                 uint32 = 17
	CodeInsufficientBalance          uint32 = 18
	CodeInvalidNonce                 uint32 = 19
)

var errorCodes = []struct {
	err  error
	code uint32
}{
	{state.ErrInvalidState, CodeInvalidState},
	{state.ErrSlotNotAvailable, CodeSlotNotAvailable},
	{state.ErrRequestNotReady, CodeRequestNotReady},
	{state.ErrNothingToSettle, CodeNothingToSettle},
	{state.ErrInsufficientStake, CodeInsufficientStake},
	{state.ErrInsufficientChallengeDeposit, CodeInsufficientChallengeDeposit},
	{state.ErrNotGovernor, CodeNotGovernor},
	{state.ErrNotArbitrator, CodeUnauthorized},
	{arbitrator.ErrNotOwner, CodeUnauthorized},
	{state.ErrInsufficientBalance, CodeInsufficientBalance},
	{state.ErrTxNonceInvalid, CodeInvalidNonce},
}

// ErrorCode maps err to the result code reported to clients.
func ErrorCode(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeGeneric
}

type applyFunc[T any] func(st *state.State, stx *tx.SignedTx, payload *T) ([]abcitypes.Event, error)

// txHandler applies one transaction type. Every successful transaction
// bumps the sender nonce.
type txHandler[T any] struct {
	logger cmtlog.Logger
	apply  applyFunc[T]
}

func newTxHandler[T any](logger cmtlog.Logger, name string, apply func(st *state.State, stx *tx.SignedTx, payload *T) ([]abcitypes.Event, error)) *txHandler[T] {
	return &txHandler[T]{
		logger: logger.With("module", name),
		apply:  apply,
	}
}

func (h *txHandler[T]) handle(ctx context.Context, st *state.State, stx *tx.SignedTx) (res *abcitypes.ExecTxResult, err error) {
	payload, ok := stx.Tx.(*T)
	if !ok {
		return nil, tx.ErrInvalidTx
	}
	events, err := h.apply(st, stx, payload)
	if err != nil {
		return nil, err
	}
	err = st.IncNonce(stx.Sender)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{Events: events}
	return
}

// Check dry-runs the transaction on a copy of st.
func (h *txHandler[T]) Check(ctx context.Context, st *state.State, stx *tx.SignedTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: CodeOK}
	_, err1 := h.handle(ctx, st.Clone(), stx)
	if err1 != nil {
		h.logger.Info("CheckTx fail", "type", stx.Type, "err", err1)
		res.Code = ErrorCode(err1)
		res.Codespace = types.ModuleName
		res.Log = err1.Error()
	}
	return
}

func (h *txHandler[T]) Prepare(ctx context.Context, st *state.State, stx *tx.SignedTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, stx)
}

func (h *txHandler[T]) Process(ctx context.Context, st *state.State, stx *tx.SignedTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, stx)
}
