package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	EventTransferType           = "transfer"
	EventSettingsCreatedType    = "settings_created"
	EventListCreatedType        = "list_created"
	EventListUpdatedType        = "list_updated"
	EventItemAddRequestType     = "item_add_request"
	EventItemRemovalRequestType = "item_removal_request"
	EventItemEditRequestType    = "item_edit_request"
	EventRequestExecutedType    = "request_executed"
	EventRequestChallengedType  = "request_challenged"
	EventAppealFundedType       = "appeal_funded"
	EventDisputeRuledType       = "dispute_ruled"
	EventRequestSettledType     = "request_settled"
)

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func parseAmount(s string) (*uint256.Int, error) {
	return uint256.FromDecimal(s)
}

type EventTransfer struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func EncodeEventTransfer(event *EventTransfer) abci.Event {
	return abci.Event{
		Type: EventTransferType,
		Attributes: []abci.EventAttribute{
			{Key: "from", Value: event.From.Hex(), Index: true},
			{Key: "to", Value: event.To.Hex(), Index: true},
			{Key: "amount", Value: amountString(event.Amount), Index: false},
		},
	}
}

func DecodeEventTransfer(originEvent abci.Event) *EventTransfer {
	event := &EventTransfer{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "from":
			event.From = common.HexToAddress(v.Value)
		case "to":
			event.To = common.HexToAddress(v.Value)
		case "amount":
			amount, err := parseAmount(v.Value)
			if err != nil {
				return nil
			}
			event.Amount = amount
		}
	}
	return event
}

type EventSettingsCreated struct {
	SettingsID       uint64         `json:"settingsId"`
	Creator          common.Address `json:"creator"`
	RequesterStake   *uint256.Int   `json:"requesterStake"`
	RequestPeriod    uint64         `json:"requestPeriod"`
	FundingPeriod    uint64         `json:"fundingPeriod"`
	AppealMultiplier uint64         `json:"appealMultiplier"`
}

func EncodeEventSettingsCreated(event *EventSettingsCreated) abci.Event {
	return abci.Event{
		Type: EventSettingsCreatedType,
		Attributes: []abci.EventAttribute{
			{Key: "settings", Value: fmt.Sprintf("%v", event.SettingsID), Index: true},
			{Key: "creator", Value: event.Creator.Hex(), Index: false},
			{Key: "requesterStake", Value: amountString(event.RequesterStake), Index: false},
			{Key: "requestPeriod", Value: fmt.Sprintf("%v", event.RequestPeriod), Index: false},
			{Key: "fundingPeriod", Value: fmt.Sprintf("%v", event.FundingPeriod), Index: false},
			{Key: "appealMultiplier", Value: fmt.Sprintf("%v", event.AppealMultiplier), Index: false},
		},
	}
}

func DecodeEventSettingsCreated(originEvent abci.Event) *EventSettingsCreated {
	event := &EventSettingsCreated{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "settings":
			event.SettingsID, err = strconv.ParseUint(v.Value, 10, 64)
		case "creator":
			event.Creator = common.HexToAddress(v.Value)
		case "requesterStake":
			event.RequesterStake, err = parseAmount(v.Value)
		case "requestPeriod":
			event.RequestPeriod, err = strconv.ParseUint(v.Value, 10, 64)
		case "fundingPeriod":
			event.FundingPeriod, err = strconv.ParseUint(v.Value, 10, 64)
		case "appealMultiplier":
			event.AppealMultiplier, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

// EventList is emitted for both list creation and list updates.
type EventList struct {
	ListID     uint64         `json:"listId"`
	Governor   common.Address `json:"governor"`
	SettingsID uint64         `json:"settingsId"`
	Metadata   string         `json:"metadata"`
	Updated    bool           `json:"updated"`
}

func EncodeEventList(event *EventList) abci.Event {
	tp := EventListCreatedType
	if event.Updated {
		tp = EventListUpdatedType
	}
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			{Key: "list", Value: fmt.Sprintf("%v", event.ListID), Index: true},
			{Key: "governor", Value: event.Governor.Hex(), Index: true},
			{Key: "settings", Value: fmt.Sprintf("%v", event.SettingsID), Index: false},
			{Key: "metadata", Value: event.Metadata, Index: false},
		},
	}
}

func DecodeEventList(originEvent abci.Event) *EventList {
	event := &EventList{Updated: originEvent.Type == EventListUpdatedType}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "list":
			event.ListID, err = strconv.ParseUint(v.Value, 10, 64)
		case "governor":
			event.Governor = common.HexToAddress(v.Value)
		case "settings":
			event.SettingsID, err = strconv.ParseUint(v.Value, 10, 64)
		case "metadata":
			event.Metadata = v.Value
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventItemRequest struct {
	Kind       RequestKind    `json:"kind"`
	Slot       uint64         `json:"slot"`
	ListID     uint64         `json:"listId"`
	SettingsID uint64         `json:"settingsId"`
	Requester  common.Address `json:"requester"`
	Item       common.Hash    `json:"item"`
	Data       []byte         `json:"data"`
	Stake      *uint256.Int   `json:"stake"`
}

func itemRequestType(kind RequestKind) string {
	switch kind {
	case RequestRemove:
		return EventItemRemovalRequestType
	case RequestEdit:
		return EventItemEditRequestType
	}
	return EventItemAddRequestType
}

func EncodeEventItemRequest(event *EventItemRequest) abci.Event {
	return abci.Event{
		Type: itemRequestType(event.Kind),
		Attributes: []abci.EventAttribute{
			{Key: "slot", Value: fmt.Sprintf("%v", event.Slot), Index: true},
			{Key: "list", Value: fmt.Sprintf("%v", event.ListID), Index: true},
			{Key: "settings", Value: fmt.Sprintf("%v", event.SettingsID), Index: false},
			{Key: "requester", Value: event.Requester.Hex(), Index: true},
			{Key: "item", Value: event.Item.Hex(), Index: true},
			{Key: "data", Value: string(event.Data), Index: false},
			{Key: "stake", Value: amountString(event.Stake), Index: false},
		},
	}
}

func DecodeEventItemRequest(originEvent abci.Event) *EventItemRequest {
	event := &EventItemRequest{}
	switch originEvent.Type {
	case EventItemAddRequestType:
		event.Kind = RequestAdd
	case EventItemRemovalRequestType:
		event.Kind = RequestRemove
	case EventItemEditRequestType:
		event.Kind = RequestEdit
	default:
		return nil
	}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "slot":
			event.Slot, err = strconv.ParseUint(v.Value, 10, 64)
		case "list":
			event.ListID, err = strconv.ParseUint(v.Value, 10, 64)
		case "settings":
			event.SettingsID, err = strconv.ParseUint(v.Value, 10, 64)
		case "requester":
			event.Requester = common.HexToAddress(v.Value)
		case "item":
			event.Item = common.HexToHash(v.Value)
		case "data":
			event.Data = []byte(v.Value)
		case "stake":
			event.Stake, err = parseAmount(v.Value)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventRequestExecuted struct {
	Slot      uint64         `json:"slot"`
	ListID    uint64         `json:"listId"`
	Kind      RequestKind    `json:"kind"`
	Item      common.Hash    `json:"item"`
	Requester common.Address `json:"requester"`
	Refund    *uint256.Int   `json:"refund"`
	Status    SlotStatus     `json:"status"`
}

func EncodeEventRequestExecuted(event *EventRequestExecuted) abci.Event {
	return abci.Event{
		Type: EventRequestExecutedType,
		Attributes: []abci.EventAttribute{
			{Key: "slot", Value: fmt.Sprintf("%v", event.Slot), Index: true},
			{Key: "list", Value: fmt.Sprintf("%v", event.ListID), Index: true},
			{Key: "kind", Value: fmt.Sprintf("%v", uint8(event.Kind)), Index: false},
			{Key: "item", Value: event.Item.Hex(), Index: true},
			{Key: "requester", Value: event.Requester.Hex(), Index: false},
			{Key: "refund", Value: amountString(event.Refund), Index: false},
			{Key: "status", Value: fmt.Sprintf("%v", uint8(event.Status)), Index: false},
		},
	}
}

func DecodeEventRequestExecuted(originEvent abci.Event) *EventRequestExecuted {
	event := &EventRequestExecuted{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "slot":
			event.Slot, err = strconv.ParseUint(v.Value, 10, 64)
		case "list":
			event.ListID, err = strconv.ParseUint(v.Value, 10, 64)
		case "kind":
			var kind uint64
			kind, err = strconv.ParseUint(v.Value, 10, 8)
			event.Kind = RequestKind(kind)
		case "item":
			event.Item = common.HexToHash(v.Value)
		case "requester":
			event.Requester = common.HexToAddress(v.Value)
		case "refund":
			event.Refund, err = parseAmount(v.Value)
		case "status":
			var status uint64
			status, err = strconv.ParseUint(v.Value, 10, 8)
			event.Status = SlotStatus(status)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventRequestChallenged struct {
	Slot       uint64         `json:"slot"`
	ListID     uint64         `json:"listId"`
	Challenger common.Address `json:"challenger"`
	DisputeID  uint64         `json:"disputeId"`
	Deposit    *uint256.Int   `json:"deposit"`
	Refund     *uint256.Int   `json:"refund"`
	Evidence   string         `json:"evidence"`
}

func EncodeEventRequestChallenged(event *EventRequestChallenged) abci.Event {
	return abci.Event{
		Type: EventRequestChallengedType,
		Attributes: []abci.EventAttribute{
			{Key: "slot", Value: fmt.Sprintf("%v", event.Slot), Index: true},
			{Key: "list", Value: fmt.Sprintf("%v", event.ListID), Index: true},
			{Key: "challenger", Value: event.Challenger.Hex(), Index: true},
			{Key: "dispute", Value: fmt.Sprintf("%v", event.DisputeID), Index: true},
			{Key: "deposit", Value: amountString(event.Deposit), Index: false},
			{Key: "refund", Value: amountString(event.Refund), Index: false},
			{Key: "evidence", Value: event.Evidence, Index: false},
		},
	}
}

func DecodeEventRequestChallenged(originEvent abci.Event) *EventRequestChallenged {
	event := &EventRequestChallenged{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "slot":
			event.Slot, err = strconv.ParseUint(v.Value, 10, 64)
		case "list":
			event.ListID, err = strconv.ParseUint(v.Value, 10, 64)
		case "challenger":
			event.Challenger = common.HexToAddress(v.Value)
		case "dispute":
			event.DisputeID, err = strconv.ParseUint(v.Value, 10, 64)
		case "deposit":
			event.Deposit, err = parseAmount(v.Value)
		case "refund":
			event.Refund, err = parseAmount(v.Value)
		case "evidence":
			event.Evidence = v.Value
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventAppealFunded struct {
	Slot        uint64         `json:"slot"`
	DisputeID   uint64         `json:"disputeId"`
	Round       uint64         `json:"round"`
	Side        Side           `json:"side"`
	Contributor common.Address `json:"contributor"`
	Amount      *uint256.Int   `json:"amount"`
	Refund      *uint256.Int   `json:"refund"`
	Funded      bool           `json:"funded"`
	Appealed    bool           `json:"appealed"`
}

func EncodeEventAppealFunded(event *EventAppealFunded) abci.Event {
	return abci.Event{
		Type: EventAppealFundedType,
		Attributes: []abci.EventAttribute{
			{Key: "slot", Value: fmt.Sprintf("%v", event.Slot), Index: true},
			{Key: "dispute", Value: fmt.Sprintf("%v", event.DisputeID), Index: true},
			{Key: "round", Value: fmt.Sprintf("%v", event.Round), Index: false},
			{Key: "side", Value: fmt.Sprintf("%v", uint8(event.Side)), Index: false},
			{Key: "contributor", Value: event.Contributor.Hex(), Index: true},
			{Key: "amount", Value: amountString(event.Amount), Index: false},
			{Key: "refund", Value: amountString(event.Refund), Index: false},
			{Key: "funded", Value: fmt.Sprintf("%v", event.Funded), Index: false},
			{Key: "appealed", Value: fmt.Sprintf("%v", event.Appealed), Index: false},
		},
	}
}

func DecodeEventAppealFunded(originEvent abci.Event) *EventAppealFunded {
	event := &EventAppealFunded{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "slot":
			event.Slot, err = strconv.ParseUint(v.Value, 10, 64)
		case "dispute":
			event.DisputeID, err = strconv.ParseUint(v.Value, 10, 64)
		case "round":
			event.Round, err = strconv.ParseUint(v.Value, 10, 64)
		case "side":
			var side uint64
			side, err = strconv.ParseUint(v.Value, 10, 8)
			event.Side = Side(side)
		case "contributor":
			event.Contributor = common.HexToAddress(v.Value)
		case "amount":
			event.Amount, err = parseAmount(v.Value)
		case "refund":
			event.Refund, err = parseAmount(v.Value)
		case "funded":
			event.Funded, err = strconv.ParseBool(v.Value)
		case "appealed":
			event.Appealed, err = strconv.ParseBool(v.Value)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventDisputeRuled struct {
	Slot       uint64         `json:"slot"`
	DisputeID  uint64         `json:"disputeId"`
	Round      uint64         `json:"round"`
	Ruling     Ruling         `json:"ruling"`
	Arbitrator common.Address `json:"arbitrator"`
}

func EncodeEventDisputeRuled(event *EventDisputeRuled) abci.Event {
	return abci.Event{
		Type: EventDisputeRuledType,
		Attributes: []abci.EventAttribute{
			{Key: "slot", Value: fmt.Sprintf("%v", event.Slot), Index: true},
			{Key: "dispute", Value: fmt.Sprintf("%v", event.DisputeID), Index: true},
			{Key: "round", Value: fmt.Sprintf("%v", event.Round), Index: false},
			{Key: "ruling", Value: fmt.Sprintf("%v", uint64(event.Ruling)), Index: false},
			{Key: "arbitrator", Value: event.Arbitrator.Hex(), Index: false},
		},
	}
}

func DecodeEventDisputeRuled(originEvent abci.Event) *EventDisputeRuled {
	event := &EventDisputeRuled{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "slot":
			event.Slot, err = strconv.ParseUint(v.Value, 10, 64)
		case "dispute":
			event.DisputeID, err = strconv.ParseUint(v.Value, 10, 64)
		case "round":
			event.Round, err = strconv.ParseUint(v.Value, 10, 64)
		case "ruling":
			var ruling uint64
			ruling, err = strconv.ParseUint(v.Value, 10, 64)
			event.Ruling = Ruling(ruling)
		case "arbitrator":
			event.Arbitrator = common.HexToAddress(v.Value)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

// Payout is one transfer made by a settlement. Paid is false when the
// transfer failed and the amount was credited for a later withdrawal.
type Payout struct {
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
	Paid   bool           `json:"paid"`
}

type EventRequestSettled struct {
	Slot      uint64       `json:"slot"`
	ListID    uint64       `json:"listId"`
	DisputeID uint64       `json:"disputeId"`
	Kind      RequestKind  `json:"kind"`
	Ruling    Ruling       `json:"ruling"`
	Status    SlotStatus   `json:"status"`
	Payouts   []Payout     `json:"payouts"`
	Retained  *uint256.Int `json:"retained"`
}

func EncodeEventRequestSettled(event *EventRequestSettled) abci.Event {
	payouts, _ := json.Marshal(event.Payouts)
	return abci.Event{
		Type: EventRequestSettledType,
		Attributes: []abci.EventAttribute{
			{Key: "slot", Value: fmt.Sprintf("%v", event.Slot), Index: true},
			{Key: "list", Value: fmt.Sprintf("%v", event.ListID), Index: true},
			{Key: "dispute", Value: fmt.Sprintf("%v", event.DisputeID), Index: true},
			{Key: "kind", Value: fmt.Sprintf("%v", uint8(event.Kind)), Index: false},
			{Key: "ruling", Value: fmt.Sprintf("%v", uint64(event.Ruling)), Index: false},
			{Key: "status", Value: fmt.Sprintf("%v", uint8(event.Status)), Index: false},
			{Key: "payouts", Value: hex.EncodeToString(payouts), Index: false},
			{Key: "retained", Value: amountString(event.Retained), Index: false},
		},
	}
}

func DecodeEventRequestSettled(originEvent abci.Event) *EventRequestSettled {
	event := &EventRequestSettled{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "slot":
			event.Slot, err = strconv.ParseUint(v.Value, 10, 64)
		case "list":
			event.ListID, err = strconv.ParseUint(v.Value, 10, 64)
		case "dispute":
			event.DisputeID, err = strconv.ParseUint(v.Value, 10, 64)
		case "kind":
			var kind uint64
			kind, err = strconv.ParseUint(v.Value, 10, 8)
			event.Kind = RequestKind(kind)
		case "ruling":
			var ruling uint64
			ruling, err = strconv.ParseUint(v.Value, 10, 64)
			event.Ruling = Ruling(ruling)
		case "status":
			var status uint64
			status, err = strconv.ParseUint(v.Value, 10, 8)
			event.Status = SlotStatus(status)
		case "payouts":
			var dat []byte
			dat, err = hex.DecodeString(v.Value)
			if err == nil {
				err = json.Unmarshal(dat, &event.Payouts)
			}
		case "retained":
			event.Retained, err = parseAmount(v.Value)
		}
		if err != nil {
			return nil
		}
	}
	return event
}
