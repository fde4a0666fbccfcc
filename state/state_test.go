package state

import (
	"testing"

	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const (
	testStake   = 1_000_000_000
	testPeriod  = 1000
	testFunding = 500
)

var (
	governor = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	dave     = common.HexToAddress("0x00000000000000000000000000000000000000a4")
	arbAddr  = common.HexToAddress("0x00000000000000000000000000000000000000af")

	funded = []common.Address{governor, alice, bob, carol, dave}
)

type fakeArbitrator struct {
	addr       common.Address
	cost       *uint256.Int
	appealCost *uint256.Int
	maxAppeals int
	disputes   uint64
	appeals    map[uint64]int
}

func newFakeArbitrator() *fakeArbitrator {
	return &fakeArbitrator{
		addr:       arbAddr,
		cost:       uint256.NewInt(500_000_000),
		appealCost: uint256.NewInt(300_000_000),
		maxAppeals: 3,
		appeals:    make(map[uint64]int),
	}
}

func (f *fakeArbitrator) Address() common.Address { return f.addr }

func (f *fakeArbitrator) DisputeCost(extraData []byte) (*uint256.Int, error) {
	return f.cost.Clone(), nil
}

func (f *fakeArbitrator) CreateDispute(choices uint64, extraData []byte, fee *uint256.Int) (uint64, error) {
	id := f.disputes
	f.disputes++
	return id, nil
}

func (f *fakeArbitrator) AppealCost(disputeID uint64, extraData []byte) (*uint256.Int, error) {
	if f.appeals[disputeID] >= f.maxAppeals {
		return nil, ErrNotAppealable
	}
	return f.appealCost.Clone(), nil
}

func (f *fakeArbitrator) Appeal(disputeID uint64, extraData []byte, fee *uint256.Int) error {
	f.appeals[disputeID]++
	return nil
}

func newTestDB(t *testing.T, arb Arbitrator) *StateDB {
	opts := Options{Backend: "memdb"}
	if arb != nil {
		opts.Arbitrator = func(KVStore) Arbitrator { return arb }
	}
	db, err := NewStateDB("", opts, cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newTestState returns a working state with funded accounts, one settings
// record and one list governed by governor.
func newTestState(t *testing.T, arb Arbitrator) *State {
	st := newTestDB(t, arb).NewState()
	setupState(t, st)
	return st
}

func setupState(t *testing.T, st *State) {
	st.SetChainId("test-chain")
	st.SetTime(10_000)
	for _, addr := range funded {
		acnt := NewAccount(addr)
		acnt.Balance = uint256.NewInt(10 * testStake)
		require.NoError(t, st.AddAccount(acnt))
	}
	_, err := st.CreateSettings(governor, &tx.CreateSettingsTx{
		RequesterStake:   uint256.NewInt(testStake),
		RequestPeriod:    testPeriod,
		FundingPeriod:    testFunding,
		AppealMultiplier: MultiplierDivisor,
	})
	require.NoError(t, err)
	_, err = st.CreateList(governor, &tx.CreateListTx{Governor: governor, SettingsID: 0})
	require.NoError(t, err)
}

func amount(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func balance(t *testing.T, st *State, addr common.Address) uint64 {
	b, err := st.Balance(addr)
	require.NoError(t, err)
	return b.Uint64()
}

func advance(st *State, d uint64) {
	st.SetTime(st.Now() + d)
}

func slotOf(t *testing.T, st *State, idx uint64) *Slot {
	sl, err := st.GetSlot(idx)
	require.NoError(t, err)
	return sl
}

func addItem(t *testing.T, st *State, who common.Address, idx uint64, data string) {
	_, err := st.AddItem(who, amount(testStake), &tx.AddItemTx{Slot: idx, Data: []byte(data)})
	require.NoError(t, err)
}

// listItem adds data at idx and executes the request once its period is
// over.
func listItem(t *testing.T, st *State, idx uint64, data string) {
	addItem(t, st, alice, idx, data)
	advance(st, testPeriod)
	_, err := st.ExecuteRequest(bob, &tx.ExecuteRequestTx{Slot: idx})
	require.NoError(t, err)
}

func TestLifecycleScenario(t *testing.T) {
	st := newTestState(t, newFakeArbitrator())

	settings, err := st.GetSettings(0)
	require.NoError(t, err)
	require.Equal(t, uint64(3906250), settings.RequesterStakeUnits)
	require.Equal(t, amount(testStake), settings.RequesterStake())

	event, err := st.AddItem(alice, amount(testStake), &tx.AddItemTx{Slot: 0, Data: []byte("item-a")})
	require.NoError(t, err)
	require.Equal(t, types.RequestAdd, event.Kind)
	require.Equal(t, ItemHash([]byte("item-a")), event.Item)
	require.Equal(t, uint64(9*testStake), balance(t, st, alice))
	require.Equal(t, types.SlotRequestInProgress, slotOf(t, st, 0).Status)

	advance(st, testPeriod)
	executed, err := st.ExecuteRequest(bob, &tx.ExecuteRequestTx{Slot: 0})
	require.NoError(t, err)
	require.Equal(t, types.SlotUsed, executed.Status)
	require.Equal(t, alice, executed.Requester)
	require.Equal(t, uint64(10*testStake), balance(t, st, alice))

	sl := slotOf(t, st, 0)
	require.Equal(t, types.SlotUsed, sl.Status)
	require.Equal(t, ItemHash([]byte("item-a")), sl.Item)
	require.Equal(t, types.RequestNone, sl.Kind)

	_, err = st.RemoveItem(bob, amount(testStake), &tx.RemoveItemTx{Slot: 0, Reason: []byte("spam")})
	require.NoError(t, err)
	advance(st, testPeriod)
	executed, err = st.ExecuteRequest(carol, &tx.ExecuteRequestTx{Slot: 0})
	require.NoError(t, err)
	require.Equal(t, types.RequestRemove, executed.Kind)
	require.Equal(t, types.SlotFree, slotOf(t, st, 0).Status)
	require.Equal(t, uint64(10*testStake), balance(t, st, bob))

	_, err = st.AddItem(alice, amount(testStake), &tx.AddItemTx{Slot: 0, Data: []byte("item-a")})
	require.NoError(t, err)
	require.Equal(t, types.SlotRequestInProgress, slotOf(t, st, 0).Status)
}

func TestStateUpdateDeterministic(t *testing.T) {
	run := func() []byte {
		st := newTestState(t, newFakeArbitrator())
		listItem(t, st, 0, "a")
		listItem(t, st, 3, "b")
		addItem(t, st, carol, 1, "c")
		h, err := st.Update()
		require.NoError(t, err)
		return h.Bytes()
	}
	require.Equal(t, run(), run())
}

func TestStateReloadsFreeSlots(t *testing.T) {
	db := newTestDB(t, newFakeArbitrator())
	st := db.NewState()
	setupState(t, st)
	listItem(t, st, 0, "a")
	listItem(t, st, 1, "b")
	listItem(t, st, 3, "c")

	_, err := st.RemoveItem(bob, amount(testStake), &tx.RemoveItemTx{Slot: 1})
	require.NoError(t, err)
	advance(st, testPeriod)
	_, err = st.ExecuteRequest(bob, &tx.ExecuteRequestTx{Slot: 1})
	require.NoError(t, err)

	_, err = st.Update()
	require.NoError(t, err)
	h, err := db.SetState(st)
	require.NoError(t, err)

	reloaded := newState(db.db, cmtlog.NewNopLogger())
	require.NoError(t, reloaded.load())
	require.Equal(t, h, reloaded.Hash())
	require.Equal(t, uint64(4), reloaded.Header().SlotCount)
	require.Equal(t, uint64(1), reloaded.Header().SettingsCount)

	idx, err := reloaded.firstFreeSlot(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx)
	idx, err = reloaded.firstFreeSlot(2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), idx)
	idx, err = reloaded.firstFreeSlot(3)
	require.NoError(t, err)
	require.Equal(t, uint64(4), idx)

	next := db.NewState()
	require.Equal(t, uint64(1), next.Header().Height)
	require.Equal(t, types.SlotUsed, slotOf(t, next, 3).Status)
}

func TestAtomicRollback(t *testing.T) {
	st := newTestState(t, newFakeArbitrator())
	poor := common.HexToAddress("0x00000000000000000000000000000000000000b0")

	_, err := st.AddItem(poor, amount(testStake), &tx.AddItemTx{Slot: 0, Data: []byte("a")})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, types.SlotFree, slotOf(t, st, 0).Status)
	require.Equal(t, uint64(0), st.Header().SlotCount)

	// the failed request leaves slot 0 free
	addItem(t, st, alice, 0, "a")
}

func TestTransferAndWithdraw(t *testing.T) {
	st := newTestState(t, newFakeArbitrator())

	_, err := st.Transfer(alice, &tx.TransferTx{To: bob, Amount: amount(testStake)})
	require.NoError(t, err)
	require.Equal(t, uint64(9*testStake), balance(t, st, alice))
	require.Equal(t, uint64(11*testStake), balance(t, st, bob))

	_, err = st.Transfer(alice, &tx.TransferTx{To: bob, Amount: amount(100 * testStake)})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, uint64(9*testStake), balance(t, st, alice))

	_, err = st.Withdraw(alice)
	require.ErrorIs(t, err, ErrNothingToWithdraw)
}
