package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	ModuleName   = "slotcurate"
	DefaultPower = 1000

	DefaultMaxSlots   = 1 << 20
	DefaultMaxAppeals = 3
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	if len(ag.AppState) != 0 {
		var st AppGenesisState
		if err := json.Unmarshal(ag.AppState, &st); err != nil {
			return fmt.Errorf("invalid app_state: %w", err)
		}
		if err := st.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

type GenesisAccount struct {
	Address common.Address `json:"address"`
	Balance *uint256.Int   `json:"balance"`
}

// ArbitratorConfig configures the in-chain court. Costs are per juror; the
// juror count is read from the first 8 bytes of a dispute's extra data.
type ArbitratorConfig struct {
	Owner       common.Address `json:"owner"`
	FeeAccount  common.Address `json:"fee_account"`
	DisputeCost *uint256.Int   `json:"dispute_cost"`
	AppealCost  *uint256.Int   `json:"appeal_cost"`
	MaxAppeals  uint64         `json:"max_appeals"`
}

type AppGenesisState struct {
	Accounts   []GenesisAccount `json:"accounts"`
	Arbitrator ArbitratorConfig `json:"arbitrator"`
	MaxSlots   uint64           `json:"max_slots"`
}

func DefaultAppGenesisState(owner common.Address, balance *uint256.Int) *AppGenesisState {
	return &AppGenesisState{
		Accounts: []GenesisAccount{{Address: owner, Balance: balance}},
		Arbitrator: ArbitratorConfig{
			Owner:       owner,
			FeeAccount:  owner,
			DisputeCost: uint256.NewInt(1_000_000_000),
			AppealCost:  uint256.NewInt(2_000_000_000),
			MaxAppeals:  DefaultMaxAppeals,
		},
		MaxSlots: DefaultMaxSlots,
	}
}

func (g *AppGenesisState) Validate() error {
	if g.MaxSlots == 0 {
		return errors.New("app_state max_slots must be positive")
	}
	if g.Arbitrator.DisputeCost == nil || g.Arbitrator.AppealCost == nil {
		return errors.New("app_state arbitrator costs must be set")
	}
	if g.Arbitrator.FeeAccount == (common.Address{}) {
		return errors.New("app_state arbitrator fee_account must be set")
	}
	seen := make(map[common.Address]bool, len(g.Accounts))
	for _, a := range g.Accounts {
		if seen[a.Address] {
			return fmt.Errorf("duplicate genesis account %v", a.Address.Hex())
		}
		seen[a.Address] = true
	}
	return nil
}
