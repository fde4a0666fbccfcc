package tx

import (
	"errors"
)

type TxType uint8

const (
	TxTypeUnknown                 TxType = 0
	TxTypeTransfer                TxType = 1
	TxTypeCreateSettings          TxType = 2
	TxTypeCreateList              TxType = 3
	TxTypeUpdateList              TxType = 4
	TxTypeAddItem                 TxType = 5
	TxTypeAddItemInFirstFreeSlot  TxType = 6
	TxTypeRemoveItem              TxType = 7
	TxTypeEditItem                TxType = 8
	TxTypeEditItemInFirstFreeSlot TxType = 9
	TxTypeExecuteRequest          TxType = 10
	TxTypeChallengeRequest        TxType = 11
	TxTypeFundAppeal              TxType = 12
	TxTypeSettle                  TxType = 13
	TxTypeGiveRuling              TxType = 14
	TxTypeWithdraw                TxType = 15
)

func (t TxType) String() string {
	switch t {
	case TxTypeTransfer:
		return "transfer"
	case TxTypeCreateSettings:
		return "createSettings"
	case TxTypeCreateList:
		return "createList"
	case TxTypeUpdateList:
		return "updateList"
	case TxTypeAddItem:
		return "addItem"
	case TxTypeAddItemInFirstFreeSlot:
		return "addItemInFirstFreeSlot"
	case TxTypeRemoveItem:
		return "removeItem"
	case TxTypeEditItem:
		return "editItem"
	case TxTypeEditItemInFirstFreeSlot:
		return "editItemInFirstFreeSlot"
	case TxTypeExecuteRequest:
		return "executeRequest"
	case TxTypeChallengeRequest:
		return "challengeRequest"
	case TxTypeFundAppeal:
		return "fundAppeal"
	case TxTypeSettle:
		return "settle"
	case TxTypeGiveRuling:
		return "giveRuling"
	case TxTypeWithdraw:
		return "withdraw"
	}
	return "unknown"
}

const (
	TxVersion0 uint8 = 0
	TxVersion1 uint8 = 1
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrMissingSignature     = errors.New("missing signature")
	ErrSenderMismatch       = errors.New("signature does not match sender")
)
