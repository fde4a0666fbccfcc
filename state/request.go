package state

import (
	"fmt"

	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// elapsed reports whether period seconds have passed since start.
func (s *State) elapsed(start, period uint64) bool {
	now := s.Now()
	return now >= start && now-start >= period
}

func ItemHash(data []byte) common.Hash {
	return crypto.Keccak256Hash(data)
}

// openRequest escrows the requester stake and moves sl into
// RequestInProgress. Anything paid above the stake is refunded.
func (s *State) openRequest(sender common.Address, value *uint256.Int, st *Settings, sl *Slot, kind types.RequestKind, pending common.Hash) (stake *uint256.Int, err error) {
	stake = st.RequesterStake()
	value = amountOrZero(value)
	if value.Lt(stake) {
		return nil, fmt.Errorf("%w: need %v, got %v", ErrInsufficientStake, stake, value)
	}
	if err = s.collect(sender, value); err != nil {
		return nil, err
	}
	sl.Status = types.SlotRequestInProgress
	sl.Kind = kind
	sl.SettingsID = st.ID
	sl.PendingItem = pending
	sl.Requester = sender
	sl.Challenger = common.Address{}
	sl.RequestTime = s.Now()
	sl.Stake = stake.Clone()
	sl.Dispute = nil
	s.putSlot(sl)
	return stake, s.refund(sender, new(uint256.Int).Sub(value, stake))
}

func (s *State) addItem(sender common.Address, value *uint256.Int, listID, settingsID, idx uint64, data []byte) (event *types.EventItemRequest, err error) {
	_, st, err := s.listSettings(listID, settingsID)
	if err != nil {
		return nil, err
	}
	sl, err := s.GetSlot(idx)
	if err != nil {
		return nil, err
	}
	if sl.Status != types.SlotFree {
		return nil, fmt.Errorf("%w: slot %v is %v", ErrSlotNotAvailable, idx, sl.Status)
	}
	item := ItemHash(data)
	sl.ListID = listID
	sl.Item = common.Hash{}
	stake, err := s.openRequest(sender, value, st, sl, types.RequestAdd, item)
	if err != nil {
		return nil, err
	}
	event = &types.EventItemRequest{
		Kind:       types.RequestAdd,
		Slot:       idx,
		ListID:     listID,
		SettingsID: settingsID,
		Requester:  sender,
		Item:       item,
		Data:       data,
		Stake:      stake,
	}
	return
}

func (s *State) AddItem(sender common.Address, value *uint256.Int, stx *tx.AddItemTx) (event *types.EventItemRequest, err error) {
	s.logger.Debug("apply add item", "sender", sender.Hex(), "list", stx.ListID, "slot", stx.Slot, "height", s.header.Height)
	err = s.atomic(func() (err error) {
		event, err = s.addItem(sender, value, stx.ListID, stx.SettingsID, stx.Slot, stx.Data)
		return
	})
	return
}

// AddItemInFirstFreeSlot adds into the lowest free slot at or above
// FromSlot.
func (s *State) AddItemInFirstFreeSlot(sender common.Address, value *uint256.Int, stx *tx.AddItemInFirstFreeSlotTx) (event *types.EventItemRequest, err error) {
	s.logger.Debug("apply add item in first free slot", "sender", sender.Hex(), "list", stx.ListID, "from", stx.FromSlot, "height", s.header.Height)
	err = s.atomic(func() error {
		idx, err := s.firstFreeSlot(stx.FromSlot)
		if err != nil {
			return err
		}
		event, err = s.addItem(sender, value, stx.ListID, stx.SettingsID, idx, stx.Data)
		return err
	})
	return
}

// usedSlot loads a used slot that belongs to listID.
func (s *State) usedSlot(listID, idx uint64) (*Slot, error) {
	sl, err := s.GetSlot(idx)
	if err != nil {
		return nil, err
	}
	if sl.Status != types.SlotUsed || sl.ListID != listID {
		return nil, fmt.Errorf("%w: slot %v is %v in list %v", ErrSlotNotAvailable, idx, sl.Status, sl.ListID)
	}
	return sl, nil
}

func (s *State) RemoveItem(sender common.Address, value *uint256.Int, stx *tx.RemoveItemTx) (event *types.EventItemRequest, err error) {
	s.logger.Debug("apply remove item", "sender", sender.Hex(), "list", stx.ListID, "slot", stx.Slot, "height", s.header.Height)
	err = s.atomic(func() error {
		_, st, err := s.listSettings(stx.ListID, stx.SettingsID)
		if err != nil {
			return err
		}
		sl, err := s.usedSlot(stx.ListID, stx.Slot)
		if err != nil {
			return err
		}
		stake, err := s.openRequest(sender, value, st, sl, types.RequestRemove, common.Hash{})
		if err != nil {
			return err
		}
		event = &types.EventItemRequest{
			Kind:       types.RequestRemove,
			Slot:       sl.Index,
			ListID:     stx.ListID,
			SettingsID: stx.SettingsID,
			Requester:  sender,
			Item:       sl.Item,
			Data:       stx.Reason,
			Stake:      stake,
		}
		return nil
	})
	return
}

func (s *State) editItem(sender common.Address, value *uint256.Int, listID, settingsID, idx uint64, data []byte) (event *types.EventItemRequest, err error) {
	_, st, err := s.listSettings(listID, settingsID)
	if err != nil {
		return nil, err
	}
	sl, err := s.usedSlot(listID, idx)
	if err != nil {
		return nil, err
	}
	item := ItemHash(data)
	stake, err := s.openRequest(sender, value, st, sl, types.RequestEdit, item)
	if err != nil {
		return nil, err
	}
	event = &types.EventItemRequest{
		Kind:       types.RequestEdit,
		Slot:       idx,
		ListID:     listID,
		SettingsID: settingsID,
		Requester:  sender,
		Item:       item,
		Data:       data,
		Stake:      stake,
	}
	return
}

func (s *State) EditItem(sender common.Address, value *uint256.Int, stx *tx.EditItemTx) (event *types.EventItemRequest, err error) {
	s.logger.Debug("apply edit item", "sender", sender.Hex(), "list", stx.ListID, "slot", stx.Slot, "height", s.header.Height)
	err = s.atomic(func() (err error) {
		event, err = s.editItem(sender, value, stx.ListID, stx.SettingsID, stx.Slot, stx.Data)
		return
	})
	return
}

// EditItemInFirstFreeSlot edits the first used slot at or above FromSlot
// that holds Item.
func (s *State) EditItemInFirstFreeSlot(sender common.Address, value *uint256.Int, stx *tx.EditItemInFirstFreeSlotTx) (event *types.EventItemRequest, err error) {
	s.logger.Debug("apply edit item in first slot", "sender", sender.Hex(), "list", stx.ListID, "from", stx.FromSlot, "height", s.header.Height)
	err = s.atomic(func() error {
		idx, err := s.findItemSlot(stx.ListID, stx.Item, stx.FromSlot)
		if err != nil {
			return err
		}
		event, err = s.editItem(sender, value, stx.ListID, stx.SettingsID, idx, stx.Data)
		return err
	})
	return
}

// applyOutcome resolves the request on sl: an accepted add or edit commits
// the pending item, an accepted remove or a rejected add frees the slot.
func (s *State) applyOutcome(sl *Slot, accepted bool) {
	switch sl.Kind {
	case types.RequestAdd:
		if accepted {
			sl.Status = types.SlotUsed
			sl.Item = sl.PendingItem
		} else {
			sl.Status = types.SlotFree
		}
	case types.RequestRemove:
		if accepted {
			sl.Status = types.SlotFree
		} else {
			sl.Status = types.SlotUsed
		}
	case types.RequestEdit:
		if accepted {
			sl.Item = sl.PendingItem
		}
		sl.Status = types.SlotUsed
	}
	if sl.Dispute != nil {
		s.disputes.remove(sl.Dispute.ID)
	}
	sl.clearRequest()
	if sl.Status == types.SlotFree {
		*sl = Slot{Index: sl.Index, Stake: new(uint256.Int)}
	}
	s.putSlot(sl)
}

// executeUnopposed accepts an unchallenged request whose period has
// elapsed and hands the stake back to the requester.
func (s *State) executeUnopposed(sl *Slot) (refund types.Payout, kind types.RequestKind, err error) {
	st, err := s.GetSettings(sl.SettingsID)
	if err != nil {
		return
	}
	if !s.elapsed(sl.RequestTime, st.RequestPeriod) {
		err = fmt.Errorf("%w: slot %v executable at %v", ErrRequestNotReady, sl.Index, sl.RequestTime+st.RequestPeriod)
		return
	}
	refund = types.Payout{To: sl.Requester, Amount: sl.Stake.Clone()}
	kind = sl.Kind
	s.applyOutcome(sl, true)
	refund.Paid, err = s.pay(refund.To, refund.Amount)
	return
}

func (s *State) ExecuteRequest(sender common.Address, stx *tx.ExecuteRequestTx) (event *types.EventRequestExecuted, err error) {
	s.logger.Debug("apply execute request", "sender", sender.Hex(), "slot", stx.Slot, "height", s.header.Height)
	err = s.atomic(func() error {
		sl, err := s.GetSlot(stx.Slot)
		if err != nil {
			return err
		}
		if sl.Status != types.SlotRequestInProgress {
			return fmt.Errorf("%w: slot %v is %v", ErrInvalidState, sl.Index, sl.Status)
		}
		listID, item := sl.ListID, sl.PendingItem
		if sl.Kind == types.RequestRemove {
			item = sl.Item
		}
		refund, kind, err := s.executeUnopposed(sl)
		if err != nil {
			return err
		}
		event = &types.EventRequestExecuted{
			Slot:      sl.Index,
			ListID:    listID,
			Kind:      kind,
			Item:      item,
			Requester: refund.To,
			Refund:    refund.Amount,
			Status:    sl.Status,
		}
		return nil
	})
	return
}
