package state

import (
	"errors"
	"testing"

	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var errBlocked = errors.New("recipient rejects transfers")

// blockingVault fails every transfer to blocked.
type blockingVault struct {
	next    Vault
	blocked common.Address
}

func (v blockingVault) Transfer(from, to common.Address, amount *uint256.Int) error {
	if to == v.blocked {
		return errBlocked
	}
	return v.next.Transfer(from, to, amount)
}

func payoutTo(p *payouts, addr common.Address) uint64 {
	if i, ok := p.idx[addr]; ok {
		return p.list[i].Amount.Uint64()
	}
	return 0
}

func totalBalance(t *testing.T, st *State) uint64 {
	var total uint64
	for _, addr := range append([]common.Address{arbAddr, EscrowAddress}, funded...) {
		total += balance(t, st, addr)
	}
	return total
}

func TestSettleByRuling(t *testing.T) {
	tests := []struct {
		name       string
		ruling     types.Ruling
		winner     common.Address
		wantStatus types.SlotStatus
	}{
		{"requester wins", types.RulingRequester, alice, types.SlotUsed},
		{"challenger wins", types.RulingChallenger, carol, types.SlotFree},
		{"refused to rule", types.RulingRefused, carol, types.SlotFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arb := newFakeArbitrator()
			st := challenged(t, arb)
			before := balance(t, st, tt.winner)

			_, err := st.Rule(arbAddr, 0, uint64(tt.ruling))
			require.NoError(t, err)
			_, err = st.Settle(bob, &tx.SettleTx{Slot: 0})
			require.ErrorIs(t, err, ErrRequestNotReady)

			advance(st, testFunding)
			event, err := st.Settle(bob, &tx.SettleTx{Slot: 0})
			require.NoError(t, err)
			require.Equal(t, tt.ruling, event.Ruling)
			require.Equal(t, tt.wantStatus, event.Status)
			require.Len(t, event.Payouts, 1)
			require.Equal(t, tt.winner, event.Payouts[0].To)
			require.True(t, event.Payouts[0].Paid)
			require.Equal(t, before+testStake, balance(t, st, tt.winner))
			require.Equal(t, uint64(0), balance(t, st, EscrowAddress))

			sl := slotOf(t, st, 0)
			require.Equal(t, tt.wantStatus, sl.Status)
			require.Nil(t, sl.Dispute)
			_, ok, err := st.disputeSlot(0)
			require.NoError(t, err)
			require.False(t, ok)

			_, err = st.Settle(bob, &tx.SettleTx{Slot: 0})
			require.ErrorIs(t, err, ErrNothingToSettle)

			if tt.wantStatus == types.SlotFree {
				addItem(t, st, dave, 0, "a")
			} else {
				require.Equal(t, ItemHash([]byte("a")), sl.Item)
			}
		})
	}
}

func TestSettleBeforeRuling(t *testing.T) {
	st := challenged(t, newFakeArbitrator())
	advance(st, 10*testPeriod)
	_, err := st.Settle(bob, &tx.SettleTx{Slot: 0})
	require.ErrorIs(t, err, ErrRequestNotReady)
}

func TestSettleFinalRulingWithoutWaiting(t *testing.T) {
	arb := newFakeArbitrator()
	arb.maxAppeals = 0
	st := challenged(t, arb)
	_, err := st.Rule(arbAddr, 0, uint64(types.RulingRequester))
	require.NoError(t, err)

	event, err := st.Settle(bob, &tx.SettleTx{Slot: 0})
	require.NoError(t, err)
	require.Equal(t, types.SlotUsed, event.Status)
}

func TestSettleOneSideFunded(t *testing.T) {
	arb := newFakeArbitrator()
	st := challenged(t, arb)
	_, err := st.Rule(arbAddr, 0, uint64(types.RulingRequester))
	require.NoError(t, err)

	_, err = st.FundAppeal(dave, amount(testStake), &tx.FundAppealTx{Slot: 0, Side: uint8(types.SideChallenger)})
	require.NoError(t, err)
	require.Equal(t, uint64(10*testStake)-arb.cost.Uint64(), balance(t, st, dave))

	advance(st, testFunding)
	event, err := st.Settle(bob, &tx.SettleTx{Slot: 0})
	require.NoError(t, err)
	require.Equal(t, types.RulingChallenger, event.Ruling)
	require.Equal(t, types.SlotFree, event.Status)
	require.Equal(t, uint64(10*testStake), balance(t, st, dave))
	require.Equal(t, uint64(10*testStake)-arb.cost.Uint64()+testStake, balance(t, st, carol))
	require.Equal(t, uint64(9*testStake), balance(t, st, alice))
}

func TestSettleUnopposed(t *testing.T) {
	st := newTestState(t, newFakeArbitrator())
	addItem(t, st, alice, 0, "a")
	advance(st, testPeriod)

	event, err := st.Settle(bob, &tx.SettleTx{Slot: 0})
	require.NoError(t, err)
	require.Equal(t, types.RulingRequester, event.Ruling)
	require.Equal(t, types.SlotUsed, event.Status)
	require.Equal(t, uint64(10*testStake), balance(t, st, alice))

	_, err = st.Settle(bob, &tx.SettleTx{Slot: 0})
	require.ErrorIs(t, err, ErrNothingToSettle)
}

func TestDistribute(t *testing.T) {
	r := newAppealRound()
	r.contribute(alice, types.SideRequester, amount(1))
	r.contribute(bob, types.SideRequester, amount(1))
	r.contribute(dave, types.SideRequester, amount(1))
	r.contribute(carol, types.SideChallenger, amount(5))
	r.Appealed = true
	r.FeeRewards = amount(10)

	open := newAppealRound()
	open.contribute(bob, types.SideChallenger, amount(7))

	sl := &Slot{
		Requester:  alice,
		Challenger: carol,
		Stake:      amount(testStake),
		Dispute:    &Dispute{Rounds: []*AppealRound{r, open}},
	}

	p, retained, err := distribute(sl, types.RulingRequester)
	require.NoError(t, err)
	require.Equal(t, uint64(testStake+3), payoutTo(p, alice))
	require.Equal(t, uint64(3+7), payoutTo(p, bob))
	require.Equal(t, uint64(3), payoutTo(p, dave))
	require.Equal(t, uint64(0), payoutTo(p, carol))
	require.Equal(t, uint64(1), retained.Uint64())
	require.Equal(t, alice, p.list[0].To)

	p, retained, err = distribute(sl, types.RulingRefused)
	require.NoError(t, err)
	require.Equal(t, uint64(1), payoutTo(p, alice))
	require.Equal(t, uint64(1+7), payoutTo(p, bob))
	require.Equal(t, uint64(1), payoutTo(p, dave))
	require.Equal(t, uint64(testStake+6), payoutTo(p, carol))
	require.Equal(t, uint64(1), retained.Uint64())
}

func TestPayoutIsolation(t *testing.T) {
	arb := newFakeArbitrator()
	st := challenged(t, arb)
	st.WrapVault(func(v Vault) Vault { return blockingVault{next: v, blocked: carol} })

	_, err := st.Rule(arbAddr, 0, uint64(types.RulingRequester))
	require.NoError(t, err)
	_, err = st.FundAppeal(alice, amount(testStake), &tx.FundAppealTx{Slot: 0, Side: uint8(types.SideRequester)})
	require.NoError(t, err)
	_, err = st.FundAppeal(dave, amount(testStake), &tx.FundAppealTx{Slot: 0, Side: uint8(types.SideChallenger)})
	require.NoError(t, err)
	_, err = st.Rule(arbAddr, 0, uint64(types.RulingChallenger))
	require.NoError(t, err)
	advance(st, testFunding)

	carolBefore := balance(t, st, carol)
	daveBefore := balance(t, st, dave)
	event, err := st.Settle(bob, &tx.SettleTx{Slot: 0})
	require.NoError(t, err)
	require.Len(t, event.Payouts, 2)
	require.Equal(t, carol, event.Payouts[0].To)
	require.False(t, event.Payouts[0].Paid)
	require.Equal(t, dave, event.Payouts[1].To)
	require.True(t, event.Payouts[1].Paid)

	require.Equal(t, carolBefore, balance(t, st, carol))
	require.Equal(t, daveBefore+700_000_000, balance(t, st, dave))
	unpaid, err := st.Unpaid(carol)
	require.NoError(t, err)
	require.Equal(t, uint64(testStake), unpaid.Uint64())
	require.Equal(t, uint64(testStake), balance(t, st, EscrowAddress))

	_, err = st.Withdraw(carol)
	require.ErrorIs(t, err, errBlocked)

	st.WrapVault(nil)
	event2, err := st.Withdraw(carol)
	require.NoError(t, err)
	require.Equal(t, uint64(testStake), event2.Amount.Uint64())
	require.Equal(t, carolBefore+testStake, balance(t, st, carol))
	require.Equal(t, uint64(0), balance(t, st, EscrowAddress))

	_, err = st.Withdraw(carol)
	require.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestConservation(t *testing.T) {
	arb := newFakeArbitrator()
	st := newTestState(t, arb)
	total := totalBalance(t, st)

	listItem(t, st, 0, "a")
	addItem(t, st, alice, 1, "b")
	addItem(t, st, bob, 2, "c")
	_, err := st.ChallengeRequest(carol, amount(testStake), &tx.ChallengeRequestTx{Slot: 1})
	require.NoError(t, err)
	_, err = st.Rule(arbAddr, 0, uint64(types.RulingRefused))
	require.NoError(t, err)
	_, err = st.FundAppeal(alice, amount(333_333_333), &tx.FundAppealTx{Slot: 1, Side: uint8(types.SideRequester)})
	require.NoError(t, err)
	_, err = st.FundAppeal(bob, amount(testStake), &tx.FundAppealTx{Slot: 1, Side: uint8(types.SideRequester)})
	require.NoError(t, err)
	_, err = st.FundAppeal(dave, amount(testStake), &tx.FundAppealTx{Slot: 1, Side: uint8(types.SideChallenger)})
	require.NoError(t, err)
	require.Equal(t, total, totalBalance(t, st))

	_, err = st.Rule(arbAddr, 0, uint64(types.RulingRefused))
	require.NoError(t, err)
	advance(st, testPeriod)
	_, err = st.Settle(bob, &tx.SettleTx{Slot: 1})
	require.NoError(t, err)
	_, err = st.Settle(bob, &tx.SettleTx{Slot: 2})
	require.NoError(t, err)

	require.Equal(t, total, totalBalance(t, st))
	require.Equal(t, st.Header().Retained, amount(balance(t, st, EscrowAddress)))
	require.False(t, st.Header().Retained.IsZero())
}
