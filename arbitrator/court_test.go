package arbitrator

import (
	"encoding/binary"
	"testing"

	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const stake = 1_000_000_000

var (
	owner      = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	feeAccount = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	governor   = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	alice      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob        = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	carol      = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	dave       = common.HexToAddress("0x00000000000000000000000000000000000000a4")
)

type recorder struct {
	calls []uint64
	from  common.Address
}

func (r *recorder) Rule(arbitrator common.Address, disputeID, ruling uint64) (*types.EventDisputeRuled, error) {
	r.from = arbitrator
	r.calls = append(r.calls, ruling)
	return &types.EventDisputeRuled{DisputeID: disputeID, Ruling: types.Ruling(ruling)}, nil
}

func testConfig() Config {
	return Config{
		Owner:       owner,
		FeeAccount:  feeAccount,
		DisputeCost: uint256.NewInt(stake),
		AppealCost:  uint256.NewInt(2 * stake),
		MaxAppeals:  2,
	}
}

func newState(t *testing.T) *state.State {
	db, err := state.NewStateDB("", state.Options{Backend: "memdb", Arbitrator: Bind}, cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := db.NewState()
	st.SetChainId("test-chain")
	st.SetTime(10_000)
	return st
}

func newCourt(t *testing.T) (*Court, *state.State) {
	st := newState(t)
	require.NoError(t, InitGenesis(st.ArbitratorStore(), testConfig()))
	return New(st.ArbitratorStore()), st
}

func jurorData(n uint64) []byte {
	dat := make([]byte, 8)
	binary.BigEndian.PutUint64(dat, n)
	return dat
}

func TestCourtNotConfigured(t *testing.T) {
	st := newState(t)
	c := New(st.ArbitratorStore())

	_, err := c.DisputeCost(nil)
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Equal(t, common.Address{}, c.Address())

	cfg := testConfig()
	cfg.AppealCost = nil
	require.ErrorIs(t, InitGenesis(st.ArbitratorStore(), cfg), ErrNotConfigured)

	cfg = testConfig()
	cfg.MaxAppeals = 0
	require.NoError(t, InitGenesis(st.ArbitratorStore(), cfg))
	got, err := c.Config()
	require.NoError(t, err)
	require.Equal(t, uint64(types.DefaultMaxAppeals), got.MaxAppeals)
	require.Equal(t, feeAccount, c.Address())
	require.Equal(t, owner, c.Owner())
}

func TestDisputeCost(t *testing.T) {
	c, _ := newCourt(t)
	tests := []struct {
		name      string
		extraData []byte
		want      uint64
	}{
		{"no extra data", nil, stake},
		{"short extra data", []byte{0, 0, 0, 5}, stake},
		{"zero jurors", jurorData(0), stake},
		{"three jurors", jurorData(3), 3 * stake},
		{"trailing bytes", append(jurorData(2), 0xff), 2 * stake},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost, err := c.DisputeCost(tt.extraData)
			require.NoError(t, err)
			require.Equal(t, tt.want, cost.Uint64())
		})
	}

	_, err := c.DisputeCost(jurorData(^uint64(0)))
	require.NoError(t, err)
}

func TestCourtLifecycle(t *testing.T) {
	c, _ := newCourt(t)
	r := &recorder{}

	_, err := c.CreateDispute(2, jurorData(2), uint256.NewInt(2*stake-1))
	require.ErrorIs(t, err, ErrInsufficientFee)

	id, err := c.CreateDispute(2, jurorData(2), uint256.NewInt(2*stake))
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)
	id, err = c.CreateDispute(2, nil, uint256.NewInt(stake))
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	n, err := c.DisputeCount()
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)

	_, err = c.Dispute(7)
	require.ErrorIs(t, err, ErrDisputeNoexists)

	d, err := c.Dispute(0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), d.Jurors)
	require.Equal(t, DisputeWaiting, d.Status)

	cost, err := c.AppealCost(0, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(4*stake), cost.Uint64())
	require.ErrorIs(t, c.Appeal(0, nil, cost), ErrNotAppealPeriod)

	_, err = c.GiveRuling(alice, 0, 1, r)
	require.ErrorIs(t, err, ErrNotOwner)
	_, err = c.GiveRuling(owner, 0, 3, r)
	require.ErrorIs(t, err, state.ErrInvalidRuling)
	require.Empty(t, r.calls)

	event, err := c.GiveRuling(owner, 0, 1, r)
	require.NoError(t, err)
	require.Equal(t, types.RulingRequester, event.Ruling)
	require.Equal(t, feeAccount, r.from)
	require.Equal(t, []uint64{1}, r.calls)

	_, err = c.GiveRuling(owner, 0, 2, r)
	require.ErrorIs(t, err, ErrDisputeNotWaiting)

	require.ErrorIs(t, c.Appeal(0, nil, uint256.NewInt(4*stake-1)), ErrInsufficientFee)
	require.NoError(t, c.Appeal(0, nil, uint256.NewInt(4*stake)))
	d, err = c.Dispute(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), d.Appeals)
	require.Equal(t, DisputeWaiting, d.Status)
	require.Equal(t, uint64(6*stake), d.Fees.Uint64())

	_, err = c.GiveRuling(owner, 0, 2, r)
	require.NoError(t, err)
	cost, err = c.AppealCost(0, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(8*stake), cost.Uint64())
	require.NoError(t, c.Appeal(0, nil, cost))

	_, err = c.GiveRuling(owner, 0, 2, r)
	require.NoError(t, err)
	d, err = c.Dispute(0)
	require.NoError(t, err)
	require.Equal(t, DisputeSolved, d.Status)
	require.Equal(t, uint64(2), d.Ruling)
	require.Equal(t, []uint64{1, 2, 2}, r.calls)

	_, err = c.AppealCost(0, nil)
	require.ErrorIs(t, err, state.ErrNotAppealable)
	require.ErrorIs(t, c.Appeal(0, nil, uint256.NewInt(100*stake)), state.ErrNotAppealable)
}

func fund(t *testing.T, st *state.State) {
	for _, addr := range []common.Address{governor, alice, bob, carol, dave} {
		acnt := state.NewAccount(addr)
		acnt.Balance = uint256.NewInt(10 * stake)
		require.NoError(t, st.AddAccount(acnt))
	}
	_, err := st.CreateSettings(governor, &tx.CreateSettingsTx{
		RequesterStake:   uint256.NewInt(stake),
		RequestPeriod:    1000,
		FundingPeriod:    500,
		AppealMultiplier: state.MultiplierDivisor,
	})
	require.NoError(t, err)
	_, err = st.CreateList(governor, &tx.CreateListTx{Governor: governor})
	require.NoError(t, err)
}

func balance(t *testing.T, st *state.State, addr common.Address) uint64 {
	b, err := st.Balance(addr)
	require.NoError(t, err)
	return b.Uint64()
}

func TestCourtRulesRequest(t *testing.T) {
	c, st := newCourt(t)
	fund(t, st)

	_, err := st.AddItem(alice, uint256.NewInt(stake), &tx.AddItemTx{Slot: 0, Data: []byte("a")})
	require.NoError(t, err)
	event, err := st.ChallengeRequest(carol, uint256.NewInt(stake), &tx.ChallengeRequestTx{Slot: 0})
	require.NoError(t, err)
	require.Equal(t, uint64(0), event.DisputeID)
	require.Equal(t, uint64(stake), balance(t, st, feeAccount))

	_, err = c.GiveRuling(owner, 0, uint64(types.RulingChallenger), st)
	require.NoError(t, err)
	sl, err := st.GetSlot(0)
	require.NoError(t, err)
	require.True(t, sl.Dispute.Ruled)
	require.Equal(t, types.RulingChallenger, sl.Dispute.Ruling)

	_, err = st.FundAppeal(alice, uint256.NewInt(2*stake), &tx.FundAppealTx{Slot: 0, Side: uint8(types.SideRequester)})
	require.NoError(t, err)
	appealed, err := st.FundAppeal(dave, uint256.NewInt(2*stake), &tx.FundAppealTx{Slot: 0, Side: uint8(types.SideChallenger)})
	require.NoError(t, err)
	require.True(t, appealed.Appealed)

	d, err := c.Dispute(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), d.Appeals)
	require.Equal(t, DisputeWaiting, d.Status)
	require.Equal(t, uint64(3*stake), balance(t, st, feeAccount))

	_, err = c.GiveRuling(owner, 0, uint64(types.RulingRequester), st)
	require.NoError(t, err)
	st.SetTime(st.Now() + 500)
	settled, err := st.Settle(bob, &tx.SettleTx{Slot: 0})
	require.NoError(t, err)
	require.Equal(t, types.RulingRequester, settled.Ruling)
	require.Equal(t, types.SlotUsed, settled.Status)

	require.Equal(t, uint64(10*stake), balance(t, st, alice))
	require.Equal(t, uint64(9*stake), balance(t, st, carol))
	require.Equal(t, uint64(8*stake), balance(t, st, dave))
	require.Equal(t, uint64(0), balance(t, st, state.EscrowAddress))
}
