package state

import (
	"fmt"
	"sort"

	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type Contribution struct {
	Contributor common.Address `json:"contributor"`
	Side        types.Side     `json:"side"`
	Amount      *uint256.Int   `json:"amount"`
}

// AppealRound tracks crowdfunded appeal fees. Paid and Funded are indexed
// by types.Side.
type AppealRound struct {
	Paid          []*uint256.Int `json:"paid"`
	Funded        []bool         `json:"funded"`
	FeeRewards    *uint256.Int   `json:"feeRewards"`
	Appealed      bool           `json:"appealed"`
	Contributions []Contribution `json:"contributions"`
}

func newAppealRound() *AppealRound {
	return &AppealRound{
		Paid:       []*uint256.Int{new(uint256.Int), new(uint256.Int), new(uint256.Int)},
		Funded:     []bool{false, false, false},
		FeeRewards: new(uint256.Int),
	}
}

func (r *AppealRound) Clone() *AppealRound {
	n := &AppealRound{
		Paid:          make([]*uint256.Int, len(r.Paid)),
		Funded:        append([]bool(nil), r.Funded...),
		FeeRewards:    amountOrZero(r.FeeRewards),
		Appealed:      r.Appealed,
		Contributions: make([]Contribution, len(r.Contributions)),
	}
	for i, p := range r.Paid {
		n.Paid[i] = amountOrZero(p)
	}
	for i, c := range r.Contributions {
		c.Amount = amountOrZero(c.Amount)
		n.Contributions[i] = c
	}
	return n
}

func (r *AppealRound) contribute(contributor common.Address, side types.Side, amount *uint256.Int) {
	r.Paid[side] = new(uint256.Int).Add(r.Paid[side], amount)
	for i := range r.Contributions {
		c := &r.Contributions[i]
		if c.Contributor == contributor && c.Side == side {
			c.Amount = new(uint256.Int).Add(c.Amount, amount)
			return
		}
	}
	r.Contributions = append(r.Contributions, Contribution{
		Contributor: contributor,
		Side:        side,
		Amount:      amount.Clone(),
	})
}

type Dispute struct {
	ID               uint64         `json:"id"`
	ChallengeDeposit *uint256.Int   `json:"challengeDeposit"`
	Ruled            bool           `json:"ruled"`
	Ruling           types.Ruling   `json:"ruling"`
	RuledAt          uint64         `json:"ruledAt"`
	Rounds           []*AppealRound `json:"rounds"`
}

func (d *Dispute) Clone() *Dispute {
	n := *d
	n.ChallengeDeposit = amountOrZero(d.ChallengeDeposit)
	n.Rounds = make([]*AppealRound, len(d.Rounds))
	for i, r := range d.Rounds {
		n.Rounds[i] = r.Clone()
	}
	return &n
}

func (d *Dispute) lastRound() *AppealRound {
	return d.Rounds[len(d.Rounds)-1]
}

// finalRuling applies the last round's funding: a side that alone paid its
// appeal fee wins regardless of the standing ruling.
func (d *Dispute) finalRuling() types.Ruling {
	r := d.lastRound()
	switch {
	case r.Funded[types.SideRequester] && !r.Funded[types.SideChallenger]:
		return types.RulingRequester
	case r.Funded[types.SideChallenger] && !r.Funded[types.SideRequester]:
		return types.RulingChallenger
	}
	return d.Ruling
}

// Slot is one cell of the slot array. Request fields are zero unless a
// request is in progress or disputed.
type Slot struct {
	Index       uint64            `json:"index"`
	ListID      uint64            `json:"listId"`
	Status      types.SlotStatus  `json:"status"`
	Item        common.Hash       `json:"item"`
	Kind        types.RequestKind `json:"kind"`
	SettingsID  uint64            `json:"settingsId"`
	PendingItem common.Hash       `json:"pendingItem"`
	Requester   common.Address    `json:"requester"`
	Challenger  common.Address    `json:"challenger"`
	RequestTime uint64            `json:"requestTime"`
	Stake       *uint256.Int      `json:"stake"`
	Dispute     *Dispute          `json:"dispute,omitempty"`
}

func (sl *Slot) Clone() *Slot {
	n := *sl
	n.Stake = amountOrZero(sl.Stake)
	if sl.Dispute != nil {
		n.Dispute = sl.Dispute.Clone()
	}
	return &n
}

func (sl *Slot) pending() bool {
	return sl.Status == types.SlotRequestInProgress || sl.Status == types.SlotDisputed
}

func (sl *Slot) clearRequest() {
	sl.Kind = types.RequestNone
	sl.SettingsID = 0
	sl.PendingItem = common.Hash{}
	sl.Requester = common.Address{}
	sl.Challenger = common.Address{}
	sl.RequestTime = 0
	sl.Stake = new(uint256.Int)
	sl.Dispute = nil
}

func (s *State) GetSlot(idx uint64) (sl *Slot, err error) {
	if idx >= s.header.MaxSlots {
		return nil, fmt.Errorf("%w: slot %v out of range", ErrSlotNotAvailable, idx)
	}
	sl, ok, err := s.slots.get(s.db, idx)
	if err != nil {
		return nil, err
	}
	if !ok {
		sl = &Slot{Index: idx, Stake: new(uint256.Int)}
	}
	return sl.Clone(), nil
}

// putSlot stores sl. Free slots are dropped from the tree and kept in the
// free set; indexes skipped past the slot count join it as one range.
func (s *State) putSlot(sl *Slot) {
	if sl.Index >= s.header.SlotCount {
		s.free.addRange(s.header.SlotCount, sl.Index)
		s.header.SlotCount = sl.Index + 1
	}
	if sl.Status == types.SlotFree {
		s.slots.remove(sl.Index)
		s.free.add(sl.Index)
		return
	}
	s.free.remove(sl.Index)
	s.slots.set(sl.Index, sl)
}

// firstFreeSlot returns the lowest free slot at or above from. Indexes at
// or past the slot count were never allocated and are free.
func (s *State) firstFreeSlot(from uint64) (idx uint64, err error) {
	if idx, ok := s.free.first(from); ok {
		return idx, nil
	}
	idx = max(from, s.header.SlotCount)
	if idx >= s.header.MaxSlots {
		return 0, fmt.Errorf("%w: no free slot", ErrSlotNotAvailable)
	}
	return
}

// findItemSlot scans upward from from for the used slot of list listID
// holding item. Worst case is one read per allocated slot.
func (s *State) findItemSlot(listID uint64, item common.Hash, from uint64) (idx uint64, err error) {
	for i := from; i < s.header.SlotCount; i++ {
		sl, err := s.GetSlot(i)
		if err != nil {
			return 0, err
		}
		if sl.Status == types.SlotUsed && sl.ListID == listID && sl.Item == item {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: item %v not found in list %v", ErrSlotNotAvailable, item.Hex(), listID)
}

func (s *State) disputeSlot(disputeID uint64) (idx uint64, ok bool, err error) {
	return s.disputes.get(s.db, disputeID)
}

// slotRange is the half-open index range [lo, hi).
type slotRange struct {
	lo, hi uint64
}

// freeSlots holds the free indexes below the slot count as sorted, disjoint
// ranges. The slice is never modified in place, so copies share it.
type freeSlots struct {
	ranges []slotRange
}

func newFreeSlots() *freeSlots {
	return &freeSlots{}
}

// Len is the number of ranges held.
func (f *freeSlots) Len() int { return len(f.ranges) }

func (f *freeSlots) copy() *freeSlots {
	return &freeSlots{ranges: f.ranges}
}

// first returns the lowest free index at or above from.
func (f *freeSlots) first(from uint64) (uint64, bool) {
	i := sort.Search(len(f.ranges), func(i int) bool { return f.ranges[i].hi > from })
	if i == len(f.ranges) {
		return 0, false
	}
	return max(f.ranges[i].lo, from), true
}

// addRange marks [lo, hi) free. lo must not lie below any held range.
func (f *freeSlots) addRange(lo, hi uint64) {
	if lo >= hi {
		return
	}
	n := len(f.ranges)
	if n > 0 && f.ranges[n-1].hi >= lo {
		if f.ranges[n-1].hi >= hi {
			return
		}
		out := make([]slotRange, n)
		copy(out, f.ranges)
		out[n-1].hi = hi
		f.ranges = out
		return
	}
	out := make([]slotRange, n, n+1)
	copy(out, f.ranges)
	f.ranges = append(out, slotRange{lo: lo, hi: hi})
}

func (f *freeSlots) add(idx uint64) {
	r := f.ranges
	n := len(r)
	i := sort.Search(n, func(i int) bool { return r[i].hi >= idx })
	if i < n && r[i].lo <= idx && idx < r[i].hi {
		return
	}
	mergeLeft := i < n && r[i].hi == idx
	j := i
	if mergeLeft {
		j = i + 1
	}
	mergeRight := j < n && r[j].lo == idx+1

	out := make([]slotRange, 0, n+1)
	out = append(out, r[:i]...)
	switch {
	case mergeLeft && mergeRight:
		out = append(out, slotRange{lo: r[i].lo, hi: r[j].hi})
		out = append(out, r[j+1:]...)
	case mergeLeft:
		out = append(out, slotRange{lo: r[i].lo, hi: idx + 1})
		out = append(out, r[i+1:]...)
	case mergeRight:
		out = append(out, slotRange{lo: idx, hi: r[j].hi})
		out = append(out, r[j+1:]...)
	default:
		out = append(out, slotRange{lo: idx, hi: idx + 1})
		out = append(out, r[i:]...)
	}
	f.ranges = out
}

func (f *freeSlots) remove(idx uint64) {
	r := f.ranges
	n := len(r)
	i := sort.Search(n, func(i int) bool { return r[i].hi > idx })
	if i == n || r[i].lo > idx {
		return
	}
	out := make([]slotRange, 0, n+1)
	out = append(out, r[:i]...)
	if r[i].lo < idx {
		out = append(out, slotRange{lo: r[i].lo, hi: idx})
	}
	if idx+1 < r[i].hi {
		out = append(out, slotRange{lo: idx + 1, hi: r[i].hi})
	}
	out = append(out, r[i+1:]...)
	f.ranges = out
}
