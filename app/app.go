package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calehh/slotcurate/arbitrator"
	"github.com/calehh/slotcurate/config"
	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/tx/handler"
	"github.com/calehh/slotcurate/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &SlotCurateApp{}

type SlotCurateApp struct {
	cfg    *config.AppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.TxType]handler.TxHandler
	queriers map[string]Querier

	st *state.State
}

func NewSlotCurateApp(cfg *config.AppConfig, logger cmtlog.Logger) (app *SlotCurateApp, err error) {
	logger = logger.With("module", "app")

	db, err := state.NewStateDB(cfg.DataDir(), state.Options{
		Backend:    cfg.DBBackend,
		CacheSize:  cfg.IAVLCacheSize,
		Arbitrator: arbitrator.Bind,
	}, logger)
	if err != nil {
		return nil, err
	}

	app = &SlotCurateApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		txHdlrs:  make(map[tx.TxType]handler.TxHandler),
		queriers: make(map[string]Querier),
	}
	app.registerTxHandler()
	app.registerQuerier()
	return
}

func (app *SlotCurateApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *SlotCurateApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("slotcurate app stopped")
}

func (app *SlotCurateApp) registerTxHandler() {
	app.txHdlrs = map[tx.TxType]handler.TxHandler{
		tx.TxTypeTransfer:                handler.NewTransferTxHandler(app.logger),
		tx.TxTypeWithdraw:                handler.NewWithdrawTxHandler(app.logger),
		tx.TxTypeCreateSettings:          handler.NewCreateSettingsTxHandler(app.logger),
		tx.TxTypeCreateList:              handler.NewCreateListTxHandler(app.logger),
		tx.TxTypeUpdateList:              handler.NewUpdateListTxHandler(app.logger),
		tx.TxTypeAddItem:                 handler.NewAddItemTxHandler(app.logger),
		tx.TxTypeAddItemInFirstFreeSlot:  handler.NewAddItemInFirstFreeSlotTxHandler(app.logger),
		tx.TxTypeRemoveItem:              handler.NewRemoveItemTxHandler(app.logger),
		tx.TxTypeEditItem:                handler.NewEditItemTxHandler(app.logger),
		tx.TxTypeEditItemInFirstFreeSlot: handler.NewEditItemInFirstFreeSlotTxHandler(app.logger),
		tx.TxTypeExecuteRequest:          handler.NewExecuteRequestTxHandler(app.logger),
		tx.TxTypeChallengeRequest:        handler.NewChallengeRequestTxHandler(app.logger),
		tx.TxTypeFundAppeal:              handler.NewFundAppealTxHandler(app.logger),
		tx.TxTypeSettle:                  handler.NewSettleTxHandler(app.logger),
		tx.TxTypeGiveRuling:              handler.NewGiveRulingTxHandler(app.logger),
	}
}

func (app *SlotCurateApp) registerQuerier() {
	app.queriers["/accounts/"] = NewAccountQuerier(app.db, app.logger)
	app.queriers["/settings/"] = newStateQuerier(app.db, app.logger, querySettings)
	app.queriers["/lists/"] = newStateQuerier(app.db, app.logger, queryList)
	app.queriers["/slots/"] = newStateQuerier(app.db, app.logger, querySlot)
	app.queriers["/slots/fees/"] = newStateQuerier(app.db, app.logger, querySlotFees)
	app.queriers["/disputes/"] = newStateQuerier(app.db, app.logger, queryDispute)
	app.queriers["/header/"] = newStateQuerier(app.db, app.logger, queryHeader)
}

func (app *SlotCurateApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	st.SetTime(uint64(chain.Time.Unix()))

	var gs types.AppGenesisState
	if len(chain.AppStateBytes) != 0 {
		if err = json.Unmarshal(chain.AppStateBytes, &gs); err != nil {
			app.logger.Error("InitChain parse app state fail", "err", err)
			return nil, err
		}
		if err = gs.Validate(); err != nil {
			app.logger.Error("InitChain invalid app state", "err", err)
			return nil, err
		}
		if err = arbitrator.InitGenesis(st.ArbitratorStore(), gs.Arbitrator); err != nil {
			app.logger.Error("InitChain init arbitrator fail", "err", err)
			return nil, err
		}
	}
	st.SetMaxSlots(gs.MaxSlots)
	for _, ga := range gs.Accounts {
		acnt := state.NewAccount(ga.Address)
		if ga.Balance != nil {
			acnt.Balance = ga.Balance.Clone()
		}
		err = st.AddAccount(acnt)
		if err != nil {
			app.logger.Error("InitChain add account fail", "err", err)
			return nil, fmt.Errorf("genesis account %v: %w", ga.Address.Hex(), err)
		}
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *SlotCurateApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *SlotCurateApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *SlotCurateApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *SlotCurateApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *SlotCurateApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *SlotCurateApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *SlotCurateApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
