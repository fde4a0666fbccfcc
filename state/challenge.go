package state

import (
	"errors"
	"fmt"

	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func (s *State) arbitrator() (Arbitrator, error) {
	arb := s.Arbitrator()
	if arb == nil {
		return nil, ErrNoArbitrator
	}
	return arb, nil
}

// DisputedSlot loads the slot that dispute id is raised for.
func (s *State) DisputedSlot(id uint64) (*Slot, error) {
	idx, ok, err := s.disputeSlot(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown dispute %v", ErrInvalidState, id)
	}
	sl, err := s.GetSlot(idx)
	if err != nil {
		return nil, err
	}
	if sl.Status != types.SlotDisputed || sl.Dispute == nil || sl.Dispute.ID != id {
		return nil, fmt.Errorf("%w: dispute %v is not pending", ErrInvalidState, id)
	}
	return sl, nil
}

// ChallengeRequest disputes a pending request. The deposit is exactly the
// arbitrator's dispute cost; it is forwarded as the arbitration fee.
func (s *State) ChallengeRequest(sender common.Address, value *uint256.Int, stx *tx.ChallengeRequestTx) (event *types.EventRequestChallenged, err error) {
	s.logger.Debug("apply challenge request", "sender", sender.Hex(), "slot", stx.Slot, "height", s.header.Height)
	err = s.atomic(func() error {
		sl, err := s.GetSlot(stx.Slot)
		if err != nil {
			return err
		}
		if sl.Status != types.SlotRequestInProgress {
			return fmt.Errorf("%w: slot %v is %v", ErrInvalidState, sl.Index, sl.Status)
		}
		st, err := s.GetSettings(sl.SettingsID)
		if err != nil {
			return err
		}
		if s.elapsed(sl.RequestTime, st.RequestPeriod) {
			return fmt.Errorf("%w: request period of slot %v is over", ErrInvalidState, sl.Index)
		}
		arb, err := s.arbitrator()
		if err != nil {
			return err
		}
		cost, err := arb.DisputeCost(st.ArbitratorExtraData)
		if err != nil {
			return err
		}
		value := amountOrZero(value)
		if value.Lt(cost) {
			return fmt.Errorf("%w: need %v, got %v", ErrInsufficientChallengeDeposit, cost, value)
		}
		if err = s.collect(sender, value); err != nil {
			return err
		}

		sl.Status = types.SlotDisputed
		sl.Challenger = sender
		sl.Dispute = &Dispute{
			ChallengeDeposit: cost.Clone(),
			Rounds:           []*AppealRound{newAppealRound()},
		}

		if err = s.vault().Transfer(EscrowAddress, arb.Address(), cost); err != nil {
			return err
		}
		id, err := arb.CreateDispute(types.NumberOfChoices, st.ArbitratorExtraData, cost)
		if err != nil {
			return err
		}
		if _, taken, err := s.disputeSlot(id); err != nil {
			return err
		} else if taken {
			return fmt.Errorf("%w: dispute %v already tracked", ErrInvalidState, id)
		}
		sl.Dispute.ID = id
		s.disputes.set(id, sl.Index)
		s.putSlot(sl)

		excess := new(uint256.Int).Sub(value, cost)
		if err = s.refund(sender, excess); err != nil {
			return err
		}
		event = &types.EventRequestChallenged{
			Slot:       sl.Index,
			ListID:     sl.ListID,
			Challenger: sender,
			DisputeID:  id,
			Deposit:    cost.Clone(),
			Refund:     excess,
			Evidence:   stx.Evidence,
		}
		return nil
	})
	return
}

// Rule records the arbitrator's ruling on a pending dispute and opens the
// appeal funding window. Repeating the current ruling is a no-op and
// returns a nil event.
func (s *State) Rule(arbitrator common.Address, disputeID, ruling uint64) (event *types.EventDisputeRuled, err error) {
	s.logger.Debug("apply rule", "arbitrator", arbitrator.Hex(), "dispute", disputeID, "ruling", ruling, "height", s.header.Height)
	err = s.atomic(func() error {
		arb, err := s.arbitrator()
		if err != nil {
			return err
		}
		if arbitrator != arb.Address() {
			return ErrNotArbitrator
		}
		if ruling > types.NumberOfChoices {
			return fmt.Errorf("%w: %v", ErrInvalidRuling, ruling)
		}
		sl, err := s.DisputedSlot(disputeID)
		if err != nil {
			return err
		}
		d := sl.Dispute
		if d.Ruled {
			if d.Ruling == types.Ruling(ruling) {
				return nil
			}
			return fmt.Errorf("%w: dispute %v already ruled %v", ErrInvalidState, disputeID, d.Ruling)
		}
		d.Ruled = true
		d.Ruling = types.Ruling(ruling)
		d.RuledAt = s.Now()
		s.putSlot(sl)

		event = &types.EventDisputeRuled{
			Slot:       sl.Index,
			DisputeID:  disputeID,
			Round:      uint64(len(d.Rounds) - 1),
			Ruling:     d.Ruling,
			Arbitrator: arbitrator,
		}
		return nil
	})
	return
}

// appealThreshold is the amount each side must raise in a funding round:
// the challenge deposit scaled by the appeal multiplier, never less than
// the appeal cost, rounded up to a whole stake unit.
func appealThreshold(deposit *uint256.Int, multiplier uint64, appealCost *uint256.Int) (*uint256.Int, error) {
	scaled, overflow := new(uint256.Int).MulDivOverflow(deposit, uint256.NewInt(multiplier), uint256.NewInt(MultiplierDivisor))
	if overflow {
		return nil, ErrAmountOverflow
	}
	if scaled.Lt(appealCost) {
		scaled = appealCost.Clone()
	}
	threshold, overflow := roundUpUnits(scaled)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return threshold, nil
}

// SlotFees is what a caller has to pay to act on a slot: the challenge
// deposit while a request is open, the per-side appeal threshold once its
// dispute is ruled.
type SlotFees struct {
	Slot             uint64           `json:"slot"`
	Status           types.SlotStatus `json:"status"`
	ChallengeDeposit *uint256.Int     `json:"challengeDeposit,omitempty"`
	AppealThreshold  *uint256.Int     `json:"appealThreshold,omitempty"`
	Paid             []*uint256.Int   `json:"paid,omitempty"`
}

func (s *State) SlotFees(idx uint64) (*SlotFees, error) {
	sl, err := s.GetSlot(idx)
	if err != nil {
		return nil, err
	}
	fees := &SlotFees{Slot: sl.Index, Status: sl.Status}
	switch {
	case sl.Status == types.SlotRequestInProgress:
	case sl.Status == types.SlotDisputed && sl.Dispute != nil && sl.Dispute.Ruled:
	default:
		return nil, fmt.Errorf("%w: slot %v has no fee to pay", ErrInvalidState, sl.Index)
	}
	st, err := s.GetSettings(sl.SettingsID)
	if err != nil {
		return nil, err
	}
	arb, err := s.arbitrator()
	if err != nil {
		return nil, err
	}
	if sl.Status == types.SlotRequestInProgress {
		fees.ChallengeDeposit, err = arb.DisputeCost(st.ArbitratorExtraData)
		return fees, err
	}
	d := sl.Dispute
	appealCost, err := arb.AppealCost(d.ID, st.ArbitratorExtraData)
	if errors.Is(err, ErrNotAppealable) {
		return nil, fmt.Errorf("%w: dispute %v", ErrInvalidState, d.ID)
	}
	if err != nil {
		return nil, err
	}
	if fees.AppealThreshold, err = appealThreshold(d.ChallengeDeposit, st.AppealMultiplier, appealCost); err != nil {
		return nil, err
	}
	fees.Paid = d.lastRound().Clone().Paid
	return fees, nil
}

// FundAppeal contributes to one side of the current funding round. Value
// above what the side still needs is refunded. Once both sides are funded
// the dispute is appealed and a new round starts.
func (s *State) FundAppeal(sender common.Address, value *uint256.Int, stx *tx.FundAppealTx) (event *types.EventAppealFunded, err error) {
	s.logger.Debug("apply fund appeal", "sender", sender.Hex(), "slot", stx.Slot, "side", stx.Side, "height", s.header.Height)
	err = s.atomic(func() error {
		side := types.Side(stx.Side)
		if !side.Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidSide, stx.Side)
		}
		sl, err := s.GetSlot(stx.Slot)
		if err != nil {
			return err
		}
		if sl.Status != types.SlotDisputed || sl.Dispute == nil {
			return fmt.Errorf("%w: slot %v is %v", ErrInvalidState, sl.Index, sl.Status)
		}
		d := sl.Dispute
		if !d.Ruled {
			return fmt.Errorf("%w: dispute %v awaits a ruling", ErrInvalidState, d.ID)
		}
		st, err := s.GetSettings(sl.SettingsID)
		if err != nil {
			return err
		}
		if s.elapsed(d.RuledAt, st.FundingPeriod) {
			return fmt.Errorf("%w: funding period of dispute %v is over", ErrInvalidState, d.ID)
		}
		arb, err := s.arbitrator()
		if err != nil {
			return err
		}
		appealCost, err := arb.AppealCost(d.ID, st.ArbitratorExtraData)
		if errors.Is(err, ErrNotAppealable) {
			return fmt.Errorf("%w: dispute %v", ErrInvalidState, d.ID)
		}
		if err != nil {
			return err
		}
		threshold, err := appealThreshold(d.ChallengeDeposit, st.AppealMultiplier, appealCost)
		if err != nil {
			return err
		}
		value := amountOrZero(value)
		if value.IsZero() {
			return fmt.Errorf("%w: empty contribution", ErrInsufficientStake)
		}
		r := d.lastRound()
		round := uint64(len(d.Rounds) - 1)
		if r.Funded[side] {
			return fmt.Errorf("%w: %v side already funded", ErrInvalidState, side)
		}
		contribution := new(uint256.Int).Sub(threshold, r.Paid[side])
		if value.Lt(contribution) {
			contribution = value.Clone()
		}
		if err = s.collect(sender, value); err != nil {
			return err
		}

		r.contribute(sender, side, contribution)
		if !r.Paid[side].Lt(threshold) {
			r.Funded[side] = true
		}
		appealed := r.Funded[types.SideRequester] && r.Funded[types.SideChallenger]
		if appealed {
			total := new(uint256.Int).Add(r.Paid[types.SideRequester], r.Paid[types.SideChallenger])
			r.FeeRewards = total.Sub(total, appealCost)
			r.Appealed = true
			d.Rounds = append(d.Rounds, newAppealRound())
			d.Ruled = false
		}
		s.putSlot(sl)

		if appealed {
			if err = s.vault().Transfer(EscrowAddress, arb.Address(), appealCost); err != nil {
				return err
			}
			if err = arb.Appeal(d.ID, st.ArbitratorExtraData, appealCost); err != nil {
				return err
			}
		}
		excess := new(uint256.Int).Sub(value, contribution)
		if err = s.refund(sender, excess); err != nil {
			return err
		}
		event = &types.EventAppealFunded{
			Slot:        sl.Index,
			DisputeID:   d.ID,
			Round:       round,
			Side:        side,
			Contributor: sender,
			Amount:      contribution,
			Refund:      excess,
			Funded:      r.Funded[side],
			Appealed:    appealed,
		}
		return nil
	})
	return
}
