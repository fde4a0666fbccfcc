package state

import (
	"errors"
	"fmt"

	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// payouts accumulates amounts per payee in first-seen order.
type payouts struct {
	list []types.Payout
	idx  map[common.Address]int
}

func newPayouts() *payouts {
	return &payouts{idx: make(map[common.Address]int)}
}

func (p *payouts) add(to common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	if i, ok := p.idx[to]; ok {
		p.list[i].Amount = new(uint256.Int).Add(p.list[i].Amount, amount)
		return
	}
	p.idx[to] = len(p.list)
	p.list = append(p.list, types.Payout{To: to, Amount: amount.Clone()})
}

// rulingFinal reports whether the dispute on sl can no longer change.
func (s *State) rulingFinal(sl *Slot, st *Settings) (bool, error) {
	d := sl.Dispute
	if !d.Ruled {
		return false, nil
	}
	if s.elapsed(d.RuledAt, st.FundingPeriod) {
		return true, nil
	}
	arb, err := s.arbitrator()
	if err != nil {
		return false, err
	}
	_, err = arb.AppealCost(d.ID, st.ArbitratorExtraData)
	if errors.Is(err, ErrNotAppealable) {
		return true, nil
	}
	return false, err
}

// distribute splits the escrowed funds of a decided dispute.
//
// The requester stake goes to the winner; a refused ruling counts as a
// requester loss. Fee rewards of appealed rounds go pro rata to the
// contributors of the winning side, or of both sides when the arbitrator
// refused to rule. Contributions to the round that was never appealed are
// returned. Truncation remainders are retained.
func distribute(sl *Slot, ruling types.Ruling) (p *payouts, retained *uint256.Int, err error) {
	p = newPayouts()
	retained = new(uint256.Int)
	if ruling == types.RulingRequester {
		p.add(sl.Requester, sl.Stake)
	} else {
		p.add(sl.Challenger, sl.Stake)
	}
	for _, r := range sl.Dispute.Rounds {
		if !r.Appealed {
			for _, c := range r.Contributions {
				p.add(c.Contributor, c.Amount)
			}
			continue
		}
		total := new(uint256.Int)
		winner := types.SideNone
		switch ruling {
		case types.RulingRequester:
			winner = types.SideRequester
			total.Set(r.Paid[winner])
		case types.RulingChallenger:
			winner = types.SideChallenger
			total.Set(r.Paid[winner])
		default:
			total.Add(r.Paid[types.SideRequester], r.Paid[types.SideChallenger])
		}
		if total.IsZero() {
			retained.Add(retained, r.FeeRewards)
			continue
		}
		distributed := new(uint256.Int)
		for _, c := range r.Contributions {
			if winner != types.SideNone && c.Side != winner {
				continue
			}
			share, overflow := new(uint256.Int).MulDivOverflow(r.FeeRewards, c.Amount, total)
			if overflow {
				return nil, nil, ErrAmountOverflow
			}
			distributed.Add(distributed, share)
			p.add(c.Contributor, share)
		}
		retained.Add(retained, new(uint256.Int).Sub(r.FeeRewards, distributed))
	}
	return
}

// Settle finalizes the request on a slot once its outcome is decided. An
// unchallenged request settles like ExecuteRequest. Bookkeeping completes
// before any payout; a payee whose transfer fails is credited instead.
func (s *State) Settle(sender common.Address, stx *tx.SettleTx) (event *types.EventRequestSettled, err error) {
	s.logger.Debug("apply settle", "sender", sender.Hex(), "slot", stx.Slot, "height", s.header.Height)
	err = s.atomic(func() error {
		sl, err := s.GetSlot(stx.Slot)
		if err != nil {
			return err
		}
		if !sl.pending() {
			return fmt.Errorf("%w: slot %v is %v", ErrNothingToSettle, sl.Index, sl.Status)
		}
		listID := sl.ListID
		if sl.Status == types.SlotRequestInProgress {
			refund, kind, err := s.executeUnopposed(sl)
			if err != nil {
				return err
			}
			event = &types.EventRequestSettled{
				Slot:     sl.Index,
				ListID:   listID,
				Kind:     kind,
				Ruling:   types.RulingRequester,
				Status:   sl.Status,
				Payouts:  []types.Payout{refund},
				Retained: new(uint256.Int),
			}
			return nil
		}

		st, err := s.GetSettings(sl.SettingsID)
		if err != nil {
			return err
		}
		final, err := s.rulingFinal(sl, st)
		if err != nil {
			return err
		}
		if !final {
			return fmt.Errorf("%w: dispute %v is not final", ErrRequestNotReady, sl.Dispute.ID)
		}
		d := sl.Dispute
		ruling := d.finalRuling()
		p, retained, err := distribute(sl, ruling)
		if err != nil {
			return err
		}
		kind := sl.Kind

		total, overflow := new(uint256.Int).AddOverflow(s.header.retained(), retained)
		if overflow {
			return ErrAmountOverflow
		}
		s.header.Retained = total
		s.applyOutcome(sl, ruling == types.RulingRequester)

		for i := range p.list {
			p.list[i].Paid, err = s.pay(p.list[i].To, p.list[i].Amount)
			if err != nil {
				return err
			}
		}
		event = &types.EventRequestSettled{
			Slot:      sl.Index,
			ListID:    listID,
			DisputeID: d.ID,
			Kind:      kind,
			Ruling:    ruling,
			Status:    sl.Status,
			Payouts:   p.list,
			Retained:  retained,
		}
		return nil
	})
	return
}
