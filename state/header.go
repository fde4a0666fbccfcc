package state

import (
	"bytes"

	"github.com/holiman/uint256"
)

type StateHeader struct {
	ChainId  string `json:"chainId"`
	Height   uint64 `json:"height"`
	Time     uint64 `json:"time"`
	Hash     []byte `json:"hash"`
	RootHash []byte `json:"rootHash"`

	MaxSlots      uint64 `json:"maxSlots"`
	SettingsCount uint64 `json:"settingsCount"`
	ListCount     uint64 `json:"listCount"`
	// SlotCount is one past the highest slot index ever allocated.
	SlotCount uint64 `json:"slotCount"`
	// Retained accumulates payout truncation remainders kept in escrow.
	Retained *uint256.Int `json:"retained"`
}

func (h *StateHeader) GetHash() []byte {
	if h == nil {
		return nil
	}
	return h.Hash
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.Hash = bytes.Clone(h.Hash)
	n.RootHash = bytes.Clone(h.RootHash)
	if h.Retained != nil {
		n.Retained = h.Retained.Clone()
	}
	return &n
}

func (h *StateHeader) retained() *uint256.Int {
	if h.Retained == nil {
		h.Retained = new(uint256.Int)
	}
	return h.Retained
}
