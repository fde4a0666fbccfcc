package state

import (
	"fmt"

	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
)

type List struct {
	ID         uint64         `json:"id"`
	Governor   common.Address `json:"governor"`
	SettingsID uint64         `json:"settingsId"`
	Metadata   string         `json:"metadata"`
}

func (l *List) Clone() *List {
	n := *l
	return &n
}

func (s *State) GetList(id uint64) (l *List, err error) {
	if id >= s.header.ListCount {
		return nil, fmt.Errorf("%w: %v", ErrListNoexists, id)
	}
	l, ok, err := s.lists.get(s.db, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return
}

func (s *State) CreateList(sender common.Address, stx *tx.CreateListTx) (event *types.EventList, err error) {
	s.logger.Debug("apply create list", "sender", sender.Hex(), "height", s.header.Height)
	if _, err = s.GetSettings(stx.SettingsID); err != nil {
		return nil, err
	}
	l := &List{
		ID:         s.header.ListCount,
		Governor:   stx.Governor,
		SettingsID: stx.SettingsID,
		Metadata:   stx.Metadata,
	}
	s.header.ListCount += 1
	s.lists.set(l.ID, l)

	event = &types.EventList{
		ListID:     l.ID,
		Governor:   l.Governor,
		SettingsID: l.SettingsID,
		Metadata:   l.Metadata,
	}
	return
}

func (s *State) UpdateList(sender common.Address, stx *tx.UpdateListTx) (event *types.EventList, err error) {
	s.logger.Debug("apply update list", "sender", sender.Hex(), "list", stx.ListID, "height", s.header.Height)
	l, err := s.GetList(stx.ListID)
	if err != nil {
		return nil, err
	}
	if l.Governor != sender {
		return nil, ErrNotGovernor
	}
	if _, err = s.GetSettings(stx.SettingsID); err != nil {
		return nil, err
	}
	l = l.Clone()
	l.SettingsID = stx.SettingsID
	l.Governor = stx.Governor
	l.Metadata = stx.Metadata
	s.lists.set(l.ID, l)

	event = &types.EventList{
		ListID:     l.ID,
		Governor:   l.Governor,
		SettingsID: l.SettingsID,
		Metadata:   l.Metadata,
		Updated:    true,
	}
	return
}

// listSettings resolves the settings a new request on list listID uses.
// settingsID must be the list's current settings.
func (s *State) listSettings(listID, settingsID uint64) (*List, *Settings, error) {
	l, err := s.GetList(listID)
	if err != nil {
		return nil, nil, err
	}
	if l.SettingsID != settingsID {
		return nil, nil, fmt.Errorf("%w: list %v uses %v, got %v", ErrSettingsMismatch, listID, l.SettingsID, settingsID)
	}
	st, err := s.GetSettings(settingsID)
	if err != nil {
		return nil, nil, err
	}
	return l, st, nil
}
