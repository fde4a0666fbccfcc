package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/calehh/slotcurate/arbitrator"
	"github.com/calehh/slotcurate/state"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// EncodeQueryIndex encodes the id or slot index a query path takes.
func EncodeQueryIndex(idx uint64) []byte {
	dat, _ := rlp.EncodeToBytes(idx)
	return dat
}

func DecodeQueryIndex(dat []byte) (idx uint64, err error) {
	err = rlp.DecodeBytes(dat, &idx)
	return
}

func (app *SlotCurateApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = 404
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

type AccountInfo struct {
	Address common.Address `json:"address"`
	Balance *uint256.Int   `json:"balance"`
	Nonce   uint64         `json:"nonce"`
	Unpaid  *uint256.Int   `json:"unpaid"`
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.AddressLength {
		res.Code = 1
		res.Log = "address expected"
		return
	}
	addr := common.BytesToAddress(req.Data)
	st := q.db.View()
	a, err1 := st.GetAccount(addr)
	if err1 != nil {
		res.Code = 1
		res.Log = err1.Error()
		return
	}
	unpaid, err1 := st.Unpaid(addr)
	if err1 != nil {
		res.Code = 1
		res.Log = err1.Error()
		return
	}
	res.Value, err = json.Marshal(&AccountInfo{
		Address: addr,
		Balance: a.Balance,
		Nonce:   a.Nonce,
		Unpaid:  unpaid,
	})
	res.Height = int64(st.Header().Height)
	return
}

type fetchFunc func(st *state.State, data []byte) (any, error)

// stateQuerier answers a query from a copy of the committed state.
type stateQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
	fetch  fetchFunc
}

func newStateQuerier(db *state.StateDB, logger cmtlog.Logger, fetch fetchFunc) *stateQuerier {
	return &stateQuerier{db: db, logger: logger, fetch: fetch}
}

func (q *stateQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st := q.db.View()
	v, err1 := q.fetch(st, req.Data)
	if err1 != nil {
		q.logger.Debug("query fail", "path", req.Path, "err", err1)
		res.Code = 1
		res.Log = err1.Error()
		return
	}
	res.Value, err = json.Marshal(v)
	res.Height = int64(st.Header().Height)
	return
}

func querySettings(st *state.State, data []byte) (any, error) {
	id, err := DecodeQueryIndex(data)
	if err != nil {
		return nil, err
	}
	return st.GetSettings(id)
}

func queryList(st *state.State, data []byte) (any, error) {
	id, err := DecodeQueryIndex(data)
	if err != nil {
		return nil, err
	}
	return st.GetList(id)
}

func querySlot(st *state.State, data []byte) (any, error) {
	idx, err := DecodeQueryIndex(data)
	if err != nil {
		return nil, err
	}
	return st.GetSlot(idx)
}

func querySlotFees(st *state.State, data []byte) (any, error) {
	idx, err := DecodeQueryIndex(data)
	if err != nil {
		return nil, err
	}
	return st.SlotFees(idx)
}

type DisputeInfo struct {
	Court *arbitrator.Dispute `json:"court"`
	Slot  *state.Slot         `json:"slot,omitempty"`
}

func queryDispute(st *state.State, data []byte) (any, error) {
	id, err := DecodeQueryIndex(data)
	if err != nil {
		return nil, err
	}
	d, err := arbitrator.New(st.ArbitratorStore()).Dispute(id)
	if err != nil {
		return nil, err
	}
	info := &DisputeInfo{Court: d}
	if sl, err := st.DisputedSlot(id); err == nil {
		info.Slot = sl
	}
	return info, nil
}

func queryHeader(st *state.State, _ []byte) (any, error) {
	return st.Header(), nil
}
