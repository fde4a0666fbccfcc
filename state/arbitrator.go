package state

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Arbitrator is the ruling oracle disputes are raised with. Fees are paid
// to Address before CreateDispute or Appeal is called.
type Arbitrator interface {
	Address() common.Address
	DisputeCost(extraData []byte) (*uint256.Int, error)
	CreateDispute(choices uint64, extraData []byte, fee *uint256.Int) (disputeID uint64, err error)
	// AppealCost returns ErrNotAppealable once the current ruling is final.
	AppealCost(disputeID uint64, extraData []byte) (*uint256.Int, error)
	Appeal(disputeID uint64, extraData []byte, fee *uint256.Int) error
}

// KVStore is a namespace of the state an arbitrator may keep records in.
// Writes follow the same clone and commit rules as the rest of the state.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// ArbitratorBinder builds the arbitrator view over a state's KVStore.
type ArbitratorBinder func(kv KVStore) Arbitrator

const arbitratorNamespace = "arb/"

type moduleStore struct {
	s      *State
	prefix string
}

func (m moduleStore) Get(key string) ([]byte, error) {
	v, ok, err := m.s.modules.get(m.s.db, m.prefix+key)
	if err != nil || !ok {
		return nil, err
	}
	return []byte(v), nil
}

func (m moduleStore) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return ErrInvalidState
	}
	m.s.modules.set(m.prefix+key, json.RawMessage(value))
	return nil
}

func (s *State) ArbitratorStore() KVStore {
	return moduleStore{s: s, prefix: arbitratorNamespace}
}

func (s *State) Arbitrator() Arbitrator {
	if s.arbBinder == nil {
		return nil
	}
	return s.arbBinder(s.ArbitratorStore())
}

func (s *State) SetArbitrator(binder ArbitratorBinder) {
	s.arbBinder = binder
}
