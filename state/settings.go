package state

import (
	"bytes"
	"fmt"

	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MultiplierDivisor is the denominator of AppealMultiplier (basis points).
const MultiplierDivisor = 10000

// Settings never change once created; lists switch to new ones instead.
type Settings struct {
	ID                  uint64 `json:"id"`
	RequesterStakeUnits uint64 `json:"requesterStakeUnits"`
	RequestPeriod       uint64 `json:"requestPeriod"`
	FundingPeriod       uint64 `json:"fundingPeriod"`
	AppealMultiplier    uint64 `json:"appealMultiplier"`
	ArbitratorExtraData []byte `json:"arbitratorExtraData"`
	AddMetaEvidence     string `json:"addMetaEvidence"`
	RemoveMetaEvidence  string `json:"removeMetaEvidence"`
	EditMetaEvidence    string `json:"editMetaEvidence"`
}

func (st *Settings) Clone() *Settings {
	n := *st
	n.ArbitratorExtraData = bytes.Clone(st.ArbitratorExtraData)
	return &n
}

func (st *Settings) RequesterStake() *uint256.Int {
	return Unscale(st.RequesterStakeUnits)
}

func (s *State) GetSettings(id uint64) (st *Settings, err error) {
	if id >= s.header.SettingsCount {
		return nil, fmt.Errorf("%w: %v", ErrSettingsNoexists, id)
	}
	st, ok, err := s.settings.get(s.db, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return
}

func (s *State) CreateSettings(sender common.Address, stx *tx.CreateSettingsTx) (event *types.EventSettingsCreated, err error) {
	s.logger.Debug("apply create settings", "sender", sender.Hex(), "height", s.header.Height)
	units, err := Scale(stx.RequesterStake)
	if err != nil {
		return nil, err
	}
	if stx.RequestPeriod == 0 || stx.FundingPeriod == 0 {
		return nil, ErrInvalidPeriod
	}
	st := &Settings{
		ID:                  s.header.SettingsCount,
		RequesterStakeUnits: units,
		RequestPeriod:       stx.RequestPeriod,
		FundingPeriod:       stx.FundingPeriod,
		AppealMultiplier:    stx.AppealMultiplier,
		ArbitratorExtraData: bytes.Clone(stx.ArbitratorExtraData),
		AddMetaEvidence:     stx.AddMetaEvidence,
		RemoveMetaEvidence:  stx.RemoveMetaEvidence,
		EditMetaEvidence:    stx.EditMetaEvidence,
	}
	s.header.SettingsCount += 1
	s.settings.set(st.ID, st)

	event = &types.EventSettingsCreated{
		SettingsID:       st.ID,
		Creator:          sender,
		RequesterStake:   st.RequesterStake(),
		RequestPeriod:    st.RequestPeriod,
		FundingPeriod:    st.FundingPeriod,
		AppealMultiplier: st.AppealMultiplier,
	}
	return
}
