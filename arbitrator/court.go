package arbitrator

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calehh/slotcurate/state"
	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrNotOwner          = errors.New("caller is not the court owner")
	ErrDisputeNoexists   = errors.New("dispute noexists")
	ErrDisputeNotWaiting = errors.New("dispute is not waiting for a ruling")
	ErrNotAppealPeriod   = errors.New("dispute is not appealable now")
	ErrInsufficientFee   = errors.New("insufficient arbitration fee")
	ErrCostOverflow      = errors.New("arbitration cost overflow")
	ErrNotConfigured     = errors.New("court not configured")
)

const (
	keyConfig  = "config"
	keyCount   = "count"
	keyDispute = "d/%d"
)

type Config = types.ArbitratorConfig

type DisputeStatus uint8

const (
	DisputeWaiting    DisputeStatus = 0
	DisputeAppealable DisputeStatus = 1
	DisputeSolved     DisputeStatus = 2
)

func (s DisputeStatus) String() string {
	switch s {
	case DisputeWaiting:
		return "waiting"
	case DisputeAppealable:
		return "appealable"
	case DisputeSolved:
		return "solved"
	}
	return "unknown"
}

type Dispute struct {
	ID      uint64        `json:"id"`
	Choices uint64        `json:"choices"`
	Jurors  uint64        `json:"jurors"`
	Appeals uint64        `json:"appeals"`
	Fees    *uint256.Int  `json:"fees"`
	Ruling  uint64        `json:"ruling"`
	Status  DisputeStatus `json:"status"`
}

// Arbitrable receives the court's rulings.
type Arbitrable interface {
	Rule(arbitrator common.Address, disputeID, ruling uint64) (*types.EventDisputeRuled, error)
}

// Court is a centralized arbitrator whose owner gives every ruling. Its
// records live in the chain state behind a state.KVStore.
type Court struct {
	kv state.KVStore
}

var _ state.Arbitrator = &Court{}

func New(kv state.KVStore) *Court {
	return &Court{kv: kv}
}

// Bind is the state.ArbitratorBinder of the court.
func Bind(kv state.KVStore) state.Arbitrator {
	return New(kv)
}

func InitGenesis(kv state.KVStore, cfg Config) error {
	if cfg.DisputeCost == nil || cfg.AppealCost == nil {
		return fmt.Errorf("%w: costs must be set", ErrNotConfigured)
	}
	if cfg.MaxAppeals == 0 {
		cfg.MaxAppeals = types.DefaultMaxAppeals
	}
	c := New(kv)
	if err := c.put(keyConfig, cfg); err != nil {
		return err
	}
	return c.put(keyCount, uint64(0))
}

func (c *Court) get(key string, v any) (ok bool, err error) {
	val, err := c.kv.Get(key)
	if err != nil || val == nil {
		return false, err
	}
	return true, json.Unmarshal(val, v)
}

func (c *Court) put(key string, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.kv.Set(key, val)
}

func (c *Court) Config() (cfg Config, err error) {
	ok, err := c.get(keyConfig, &cfg)
	if err == nil && !ok {
		err = ErrNotConfigured
	}
	return
}

// Address is the court's fee account; fees are paid to it and rulings are
// delivered under it.
func (c *Court) Address() common.Address {
	cfg, err := c.Config()
	if err != nil {
		return common.Address{}
	}
	return cfg.FeeAccount
}

func (c *Court) Owner() common.Address {
	cfg, err := c.Config()
	if err != nil {
		return common.Address{}
	}
	return cfg.Owner
}

// jurors reads the juror count from the first 8 bytes of extraData.
func jurors(extraData []byte) uint64 {
	if len(extraData) < 8 {
		return 1
	}
	n := binary.BigEndian.Uint64(extraData[:8])
	if n == 0 {
		return 1
	}
	return n
}

func (c *Court) DisputeCost(extraData []byte) (*uint256.Int, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	cost, overflow := new(uint256.Int).MulOverflow(cfg.DisputeCost, uint256.NewInt(jurors(extraData)))
	if overflow {
		return nil, ErrCostOverflow
	}
	return cost, nil
}

func (c *Court) Dispute(id uint64) (*Dispute, error) {
	d := new(Dispute)
	ok, err := c.get(fmt.Sprintf(keyDispute, id), d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrDisputeNoexists, id)
	}
	return d, nil
}

func (c *Court) DisputeCount() (n uint64, err error) {
	_, err = c.get(keyCount, &n)
	return
}

func (c *Court) CreateDispute(choices uint64, extraData []byte, fee *uint256.Int) (id uint64, err error) {
	cost, err := c.DisputeCost(extraData)
	if err != nil {
		return 0, err
	}
	if fee == nil || fee.Lt(cost) {
		return 0, fmt.Errorf("%w: need %v", ErrInsufficientFee, cost)
	}
	id, err = c.DisputeCount()
	if err != nil {
		return 0, err
	}
	d := &Dispute{
		ID:      id,
		Choices: choices,
		Jurors:  jurors(extraData),
		Fees:    fee.Clone(),
		Status:  DisputeWaiting,
	}
	if err = c.put(fmt.Sprintf(keyDispute, id), d); err != nil {
		return 0, err
	}
	return id, c.put(keyCount, id+1)
}

// AppealCost doubles with every appeal. A dispute that has used up its
// appeals is final.
func (c *Court) AppealCost(disputeID uint64, extraData []byte) (*uint256.Int, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	d, err := c.Dispute(disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status == DisputeSolved || d.Appeals >= cfg.MaxAppeals {
		return nil, state.ErrNotAppealable
	}
	if d.Appeals >= 64 {
		return nil, ErrCostOverflow
	}
	cost, overflow := new(uint256.Int).MulOverflow(cfg.AppealCost, uint256.NewInt(d.Jurors))
	if overflow {
		return nil, ErrCostOverflow
	}
	cost, overflow = cost.MulOverflow(cost, new(uint256.Int).Lsh(uint256.NewInt(1), uint(d.Appeals)))
	if overflow {
		return nil, ErrCostOverflow
	}
	return cost, nil
}

func (c *Court) Appeal(disputeID uint64, extraData []byte, fee *uint256.Int) error {
	cost, err := c.AppealCost(disputeID, extraData)
	if err != nil {
		return err
	}
	d, err := c.Dispute(disputeID)
	if err != nil {
		return err
	}
	if d.Status != DisputeAppealable {
		return fmt.Errorf("%w: %v is %v", ErrNotAppealPeriod, disputeID, d.Status)
	}
	if fee == nil || fee.Lt(cost) {
		return fmt.Errorf("%w: need %v", ErrInsufficientFee, cost)
	}
	d.Appeals += 1
	d.Status = DisputeWaiting
	d.Fees = new(uint256.Int).Add(d.Fees, fee)
	return c.put(fmt.Sprintf(keyDispute, disputeID), d)
}

// GiveRuling records the owner's ruling and delivers it to the arbitrable.
// A ruling given after the last appeal is final.
func (c *Court) GiveRuling(caller common.Address, disputeID, ruling uint64, to Arbitrable) (event *types.EventDisputeRuled, err error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	if caller != cfg.Owner {
		return nil, ErrNotOwner
	}
	d, err := c.Dispute(disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != DisputeWaiting {
		return nil, fmt.Errorf("%w: %v is %v", ErrDisputeNotWaiting, disputeID, d.Status)
	}
	if ruling > d.Choices {
		return nil, fmt.Errorf("%w: %v of %v choices", state.ErrInvalidRuling, ruling, d.Choices)
	}
	d.Ruling = ruling
	if d.Appeals >= cfg.MaxAppeals {
		d.Status = DisputeSolved
	} else {
		d.Status = DisputeAppealable
	}
	if err = c.put(fmt.Sprintf(keyDispute, disputeID), d); err != nil {
		return nil, err
	}
	return to.Rule(cfg.FeeAccount, disputeID, ruling)
}
