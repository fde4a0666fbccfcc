package app

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/calehh/slotcurate/config"
	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/tx/handler"
	"github.com/calehh/slotcurate/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const (
	testChain = "test-chain"
	testStake = 1_000_000_000
)

var genesisTime = time.Unix(10_000, 0)

type testApp struct {
	*SlotCurateApp
	t     *testing.T
	key   *ecdsa.PrivateKey
	owner common.Address
}

func newTestApp(t *testing.T) *testApp {
	cfg := config.DefaultAppConfig(t.TempDir())
	cfg.DBBackend = "memdb"
	app, err := NewSlotCurateApp(cfg, cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(app.Stop)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	gs := types.DefaultAppGenesisState(owner, uint256.NewInt(100*testStake))
	dat, err := json.Marshal(gs)
	require.NoError(t, err)
	res, err := app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		Time:          genesisTime,
		ChainId:       testChain,
		AppStateBytes: dat,
	})
	require.NoError(t, err)
	require.Len(t, res.AppHash, common.HashLength)

	return &testApp{SlotCurateApp: app, t: t, key: key, owner: owner}
}

func (a *testApp) signTx(nonce uint64, typ tx.TxType, value uint64, payload any) []byte {
	stx := &tx.SignedTx{
		Version: tx.TxVersion1,
		Type:    typ,
		Nonce:   nonce,
		Tx:      payload,
	}
	if value > 0 {
		stx.Value = uint256.NewInt(value)
	}
	require.NoError(a.t, stx.Sign(testChain, a.key))
	dat, err := tx.MarshalSignedTx(stx)
	require.NoError(a.t, err)
	return dat
}

func (a *testApp) block(height int64, t time.Time, txs ...[]byte) []*abcitypes.ExecTxResult {
	res, err := a.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{
		Height: height,
		Time:   t,
		Txs:    txs,
	})
	require.NoError(a.t, err)
	require.Len(a.t, res.AppHash, common.HashLength)
	_, err = a.Commit(context.Background(), &abcitypes.RequestCommit{})
	require.NoError(a.t, err)
	return res.TxResults
}

func (a *testApp) query(path string, data []byte, out any) *abcitypes.ResponseQuery {
	res, err := a.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(a.t, err)
	if out != nil && res.Code == 0 {
		require.NoError(a.t, json.Unmarshal(res.Value, out))
	}
	return res
}

func TestBlockLifecycle(t *testing.T) {
	a := newTestApp(t)

	results := a.block(1, genesisTime.Add(time.Second),
		a.signTx(0, tx.TxTypeCreateSettings, 0, &tx.CreateSettingsTx{
			RequesterStake:   uint256.NewInt(testStake),
			RequestPeriod:    1000,
			FundingPeriod:    500,
			AppealMultiplier: state.MultiplierDivisor,
		}),
		a.signTx(1, tx.TxTypeCreateList, 0, &tx.CreateListTx{Governor: a.owner}),
		a.signTx(2, tx.TxTypeAddItem, testStake, &tx.AddItemTx{Slot: 0, Data: []byte("a")}),
		a.signTx(5, tx.TxTypeAddItem, testStake, &tx.AddItemTx{Slot: 1, Data: []byte("b")}),
		[]byte("garbage"),
	)
	require.Len(t, results, 5)
	for i, want := range []uint32{handler.CodeOK, handler.CodeOK, handler.CodeOK, handler.CodeInvalidNonce, handler.CodeGeneric} {
		require.Equal(t, want, results[i].Code, "tx %d", i)
	}
	require.NotEmpty(t, results[2].Events)

	info, err := a.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	require.Equal(t, int64(1), info.LastBlockHeight)

	var sl state.Slot
	res := a.query("/slots/", EncodeQueryIndex(0), &sl)
	require.Equal(t, uint32(0), res.Code)
	require.Equal(t, int64(1), res.Height)
	require.Equal(t, types.SlotRequestInProgress, sl.Status)
	require.Equal(t, a.owner, sl.Requester)

	var acnt AccountInfo
	a.query("/accounts/", a.owner.Bytes(), &acnt)
	require.Equal(t, uint64(3), acnt.Nonce)
	require.Equal(t, uint64(99*testStake), acnt.Balance.Uint64())
	require.True(t, acnt.Unpaid.IsZero())

	results = a.block(2, genesisTime.Add(2000*time.Second),
		a.signTx(3, tx.TxTypeExecuteRequest, 0, &tx.ExecuteRequestTx{Slot: 0}),
	)
	require.Equal(t, handler.CodeOK, results[0].Code)

	a.query("/slots", EncodeQueryIndex(0), &sl)
	require.Equal(t, types.SlotUsed, sl.Status)
	a.query("/accounts/", a.owner.Bytes(), &acnt)
	require.Equal(t, uint64(100*testStake), acnt.Balance.Uint64())

	var header state.StateHeader
	a.query("/header", nil, &header)
	require.Equal(t, uint64(2), header.Height)
	require.Equal(t, uint64(1), header.SlotCount)
}

func TestQuerySlotFees(t *testing.T) {
	a := newTestApp(t)
	results := a.block(1, genesisTime.Add(time.Second),
		a.signTx(0, tx.TxTypeCreateSettings, 0, &tx.CreateSettingsTx{
			RequesterStake:   uint256.NewInt(testStake),
			RequestPeriod:    1000,
			FundingPeriod:    500,
			AppealMultiplier: state.MultiplierDivisor,
		}),
		a.signTx(1, tx.TxTypeCreateList, 0, &tx.CreateListTx{Governor: a.owner}),
		a.signTx(2, tx.TxTypeAddItem, testStake, &tx.AddItemTx{Slot: 0, Data: []byte("a")}),
	)
	for i, r := range results {
		require.Equal(t, handler.CodeOK, r.Code, "tx %d", i)
	}

	var fees state.SlotFees
	res := a.query("/slots/fees/", EncodeQueryIndex(0), &fees)
	require.Equal(t, uint32(0), res.Code)
	require.Equal(t, types.SlotRequestInProgress, fees.Status)
	require.Equal(t, uint64(1_000_000_000), fees.ChallengeDeposit.Uint64())
	require.Nil(t, fees.AppealThreshold)

	results = a.block(2, genesisTime.Add(2*time.Second),
		a.signTx(3, tx.TxTypeChallengeRequest, 1_000_000_000, &tx.ChallengeRequestTx{Slot: 0}),
	)
	require.Equal(t, handler.CodeOK, results[0].Code)
	require.Equal(t, uint32(1), a.query("/slots/fees", EncodeQueryIndex(0), nil).Code)

	results = a.block(3, genesisTime.Add(3*time.Second),
		a.signTx(4, tx.TxTypeGiveRuling, 0, &tx.GiveRulingTx{DisputeID: 0, Ruling: uint64(types.RulingRequester)}),
	)
	require.Equal(t, handler.CodeOK, results[0].Code)

	fees = state.SlotFees{}
	a.query("/slots/fees", EncodeQueryIndex(0), &fees)
	require.Equal(t, types.SlotDisputed, fees.Status)
	require.Nil(t, fees.ChallengeDeposit)
	require.Equal(t, uint64(2_000_000_000), fees.AppealThreshold.Uint64())

	require.Equal(t, uint32(1), a.query("/slots/fees/", EncodeQueryIndex(5), nil).Code)
}

func TestQueryErrors(t *testing.T) {
	a := newTestApp(t)

	require.Equal(t, uint32(404), a.query("/nothing/", nil, nil).Code)
	require.Equal(t, uint32(1), a.query("/accounts/", []byte{1, 2}, nil).Code)
	require.Equal(t, uint32(1), a.query("/disputes/", EncodeQueryIndex(0), nil).Code)
	require.Equal(t, uint32(1), a.query("/slots/", []byte("not rlp"), nil).Code)
	require.Equal(t, uint32(1), a.query("/settings/", EncodeQueryIndex(9), nil).Code)
}

func TestCheckTx(t *testing.T) {
	a := newTestApp(t)
	transfer := &tx.TransferTx{To: common.HexToAddress("0x01"), Amount: uint256.NewInt(1)}

	res, err := a.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: a.signTx(4, tx.TxTypeTransfer, 0, transfer)})
	require.NoError(t, err)
	require.Equal(t, handler.CodeOK, res.Code)

	res, err = a.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: a.signTx(0, tx.TxTypeSettle, 0, &tx.SettleTx{Slot: 3})})
	require.NoError(t, err)
	require.Equal(t, handler.CodeNothingToSettle, res.Code)

	stx, err := tx.UnmarshalSignedTx(a.signTx(0, tx.TxTypeTransfer, 0, transfer))
	require.NoError(t, err)
	stx.Nonce = 1
	dat, err := tx.MarshalSignedTx(stx)
	require.NoError(t, err)
	res, err = a.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: dat})
	require.NoError(t, err)
	require.Equal(t, handler.CodeGeneric, res.Code)
}

func TestQueryIndex(t *testing.T) {
	for _, idx := range []uint64{0, 1, 255, 1 << 40} {
		got, err := DecodeQueryIndex(EncodeQueryIndex(idx))
		require.NoError(t, err)
		require.Equal(t, idx, got)
	}
}
