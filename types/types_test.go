package types

import (
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000a3")
)

func TestEventTransfer(t *testing.T) {
	event := &EventTransfer{From: alice, To: carol, Amount: uint256.NewInt(42)}
	got := DecodeEventTransfer(EncodeEventTransfer(event))
	require.Equal(t, event, got)

	bad := EncodeEventTransfer(event)
	bad.Attributes[2].Value = "abc"
	require.Nil(t, DecodeEventTransfer(bad))
}

func TestEventItemRequest(t *testing.T) {
	event := &EventItemRequest{
		Kind:      RequestEdit,
		Slot:      4,
		ListID:    2,
		Requester: alice,
		Item:      common.HexToHash("0x01"),
		Data:      []byte("new"),
		Stake:     uint256.NewInt(256),
	}
	encoded := EncodeEventItemRequest(event)
	require.Equal(t, EventItemEditRequestType, encoded.Type)
	require.Equal(t, event, DecodeEventItemRequest(encoded))

	require.Nil(t, DecodeEventItemRequest(abci.Event{Type: EventTransferType}))
}

func TestEventRequestSettled(t *testing.T) {
	event := &EventRequestSettled{
		Slot:      1,
		ListID:    3,
		DisputeID: 9,
		Kind:      RequestAdd,
		Ruling:    RulingChallenger,
		Status:    SlotFree,
		Payouts: []Payout{
			{To: carol, Amount: uint256.NewInt(1000), Paid: true},
			{To: alice, Amount: uint256.NewInt(7), Paid: false},
		},
		Retained: uint256.NewInt(1),
	}
	require.Equal(t, event, DecodeEventRequestSettled(EncodeEventRequestSettled(event)))
}

func TestEventDisputeRuled(t *testing.T) {
	event := &EventDisputeRuled{Slot: 5, DisputeID: 2, Round: 1, Ruling: RulingRefused, Arbitrator: carol}
	require.Equal(t, event, DecodeEventDisputeRuled(EncodeEventDisputeRuled(event)))
}

func TestSide(t *testing.T) {
	require.True(t, SideRequester.Valid())
	require.False(t, SideNone.Valid())
	require.False(t, Side(3).Valid())
	require.Equal(t, SideChallenger, SideRequester.Opposite())
	require.Equal(t, SideRequester, SideChallenger.Opposite())
	require.Equal(t, SideNone, SideNone.Opposite())
	require.Equal(t, "request_in_progress", SlotRequestInProgress.String())
	require.Equal(t, "none", RequestKind(9).String())
}

func TestAppGenesisStateValidate(t *testing.T) {
	gs := DefaultAppGenesisState(alice, uint256.NewInt(1))
	require.NoError(t, gs.Validate())

	gs.Accounts = append(gs.Accounts, GenesisAccount{Address: alice})
	require.Error(t, gs.Validate())

	gs = DefaultAppGenesisState(alice, uint256.NewInt(1))
	gs.MaxSlots = 0
	require.Error(t, gs.Validate())

	gs = DefaultAppGenesisState(alice, uint256.NewInt(1))
	gs.Arbitrator.FeeAccount = common.Address{}
	require.Error(t, gs.Validate())
}
