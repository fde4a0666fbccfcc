package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calehh/slotcurate/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	KeyState        = "h"
	KeyAccount      = "a/%x"
	KeySettings     = "c/%016x"
	KeyList         = "l/%016x"
	KeySlot         = "s/%016x"
	KeySlotPrefix   = "s/"
	KeyDispute      = "d/%016x"
	KeyUnpaid       = "u/%x"
	KeyModulePrefix = "m/"
)

type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header *StateHeader
	free   *freeSlots

	acnts    *cache[common.Address, *Account]
	settings *cache[uint64, *Settings]
	lists    *cache[uint64, *List]
	slots    *cache[uint64, *Slot]
	disputes *cache[uint64, uint64]
	unpaid   *cache[common.Address, *uint256.Int]
	modules  *cache[string, json.RawMessage]

	arbBinder ArbitratorBinder
	vaultHook func(Vault) Vault
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger: logger,
		db:     db,
		dbVer:  0,
		header: &StateHeader{MaxSlots: types.DefaultMaxSlots, Retained: new(uint256.Int)},
		free:   newFreeSlots(),

		acnts: newCache(func(a common.Address) string { return fmt.Sprintf(KeyAccount, a[:]) },
			func(a *Account) *Account { return a.Clone() }),
		settings: newCache(func(id uint64) string { return fmt.Sprintf(KeySettings, id) },
			func(st *Settings) *Settings { return st.Clone() }),
		lists: newCache(func(id uint64) string { return fmt.Sprintf(KeyList, id) },
			func(l *List) *List { return l.Clone() }),
		slots: newCache(func(idx uint64) string { return fmt.Sprintf(KeySlot, idx) },
			func(sl *Slot) *Slot { return sl.Clone() }),
		disputes: newCache(func(id uint64) string { return fmt.Sprintf(KeyDispute, id) },
			identity[uint64]),
		unpaid: newCache(func(a common.Address) string { return fmt.Sprintf(KeyUnpaid, a[:]) },
			amountOrZero),
		modules: newCache(func(k string) string { return KeyModulePrefix + k },
			func(v json.RawMessage) json.RawMessage { return append(json.RawMessage(nil), v...) }),
	}
	return s
}

func (s *State) withCaches(copyCache bool) *State {
	n := &State{
		logger:    s.logger,
		db:        s.db,
		dbVer:     s.dbVer,
		header:    s.header.Clone(),
		free:      s.free.copy(),
		arbBinder: s.arbBinder,
		vaultHook: s.vaultHook,
	}
	if copyCache {
		n.acnts, n.settings, n.lists = s.acnts.copy(), s.settings.copy(), s.lists.copy()
		n.slots, n.disputes = s.slots.copy(), s.disputes.copy()
		n.unpaid, n.modules = s.unpaid.copy(), s.modules.copy()
	} else {
		n.acnts, n.settings, n.lists = s.acnts.fresh(), s.settings.fresh(), s.lists.fresh()
		n.slots, n.disputes = s.slots.fresh(), s.disputes.fresh()
		n.unpaid, n.modules = s.unpaid.fresh(), s.modules.fresh()
	}
	return n
}

// nextState starts the working state of the next block on top of a
// committed one.
func (s *State) nextState() *State {
	n := s.withCaches(false)
	if s.header.GetHash() != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

// Clone returns an independent copy sharing only the underlying tree.
func (s *State) Clone() *State {
	return s.withCaches(true)
}

// atomic runs fn and discards every change it made if it fails.
func (s *State) atomic(fn func() error) error {
	snap := s.Clone()
	if err := fn(); err != nil {
		*s = *snap
		return err
	}
	return nil
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		if !errors.Is(err, leveldb.ErrNotFound) {
			return err
		}
		err = nil
	}
	if val == nil {
		return
	}
	err = json.Unmarshal(val, s.header)
	if err != nil {
		return
	}
	if s.header.Retained == nil {
		s.header.Retained = new(uint256.Int)
	}
	h := s.db.Hash()
	if h != nil {
		s.calcHash(h, true)
	}
	return s.loadFreeSlots()
}

// loadFreeSlots rebuilds the free set from the gaps between stored slots.
func (s *State) loadFreeSlots() (err error) {
	start := []byte(KeySlotPrefix)
	it, err := s.db.Iterator(start, PrefixEndBytes(start), true)
	if err != nil {
		return err
	}
	defer it.Close()
	next := uint64(0)
	for ; it.Valid(); it.Next() {
		var sl Slot
		err = json.Unmarshal(it.Value(), &sl)
		if err != nil {
			return
		}
		s.free.addRange(next, min(sl.Index, s.header.SlotCount))
		next = sl.Index + 1
	}
	s.free.addRange(next, s.header.SlotCount)
	return it.Error()
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = append(s.header.RootHash[:0], rootHash...)
		s.header.Hash = append(s.header.Hash[:0], h[:]...)
	}
	return
}

// Update writes every pending change to the working tree and returns the
// resulting app hash.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	flushers := []func(treeDB) error{
		s.acnts.flush, s.settings.flush, s.lists.flush, s.slots.flush,
		s.disputes.flush, s.unpaid.flush, s.modules.flush,
	}
	for _, flush := range flushers {
		if err = flush(s.db); err != nil {
			return
		}
	}
	val, err := json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

// SetTime sets the block time in unix seconds that timeouts are measured
// against.
func (s *State) SetTime(t uint64) {
	s.header.Time = t
}

func (s *State) Now() uint64 {
	return s.header.Time
}

func (s *State) SetMaxSlots(n uint64) {
	if n == 0 {
		n = types.DefaultMaxSlots
	}
	s.header.MaxSlots = n
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
