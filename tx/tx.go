package tx

import (
	"crypto/ecdsa"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// SignedTx is the envelope of every transaction. Value is the amount the
// sender attaches to a payable operation.
type SignedTx struct {
	Version uint8          `json:"version"`
	Type    TxType         `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Value   *uint256.Int   `json:"value"`
	Tx      any            `json:"tx"`
	Sig     [][]byte       `json:"sig"`
}

type TransferTx struct {
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

type CreateSettingsTx struct {
	RequesterStake      *uint256.Int `json:"requesterStake"`
	RequestPeriod       uint64       `json:"requestPeriod"`
	FundingPeriod       uint64       `json:"fundingPeriod"`
	AppealMultiplier    uint64       `json:"appealMultiplier"`
	ArbitratorExtraData []byte       `json:"arbitratorExtraData"`
	AddMetaEvidence     string       `json:"addMetaEvidence"`
	RemoveMetaEvidence  string       `json:"removeMetaEvidence"`
	EditMetaEvidence    string       `json:"editMetaEvidence"`
}

type CreateListTx struct {
	Governor   common.Address `json:"governor"`
	SettingsID uint64         `json:"settingsId"`
	Metadata   string         `json:"metadata"`
}

type UpdateListTx struct {
	ListID     uint64         `json:"listId"`
	SettingsID uint64         `json:"settingsId"`
	Governor   common.Address `json:"governor"`
	Metadata   string         `json:"metadata"`
}

type AddItemTx struct {
	ListID     uint64 `json:"listId"`
	SettingsID uint64 `json:"settingsId"`
	Slot       uint64 `json:"slot"`
	Data       []byte `json:"data"`
}

type AddItemInFirstFreeSlotTx struct {
	ListID     uint64 `json:"listId"`
	SettingsID uint64 `json:"settingsId"`
	FromSlot   uint64 `json:"fromSlot"`
	Data       []byte `json:"data"`
}

type RemoveItemTx struct {
	Slot       uint64 `json:"slot"`
	ListID     uint64 `json:"listId"`
	SettingsID uint64 `json:"settingsId"`
	Reason     []byte `json:"reason"`
}

type EditItemTx struct {
	Slot       uint64 `json:"slot"`
	ListID     uint64 `json:"listId"`
	SettingsID uint64 `json:"settingsId"`
	Data       []byte `json:"data"`
}

type EditItemInFirstFreeSlotTx struct {
	ListID     uint64      `json:"listId"`
	SettingsID uint64      `json:"settingsId"`
	FromSlot   uint64      `json:"fromSlot"`
	Item       common.Hash `json:"item"`
	Data       []byte      `json:"data"`
}

type ExecuteRequestTx struct {
	Slot uint64 `json:"slot"`
}

type ChallengeRequestTx struct {
	Slot     uint64 `json:"slot"`
	Evidence string `json:"evidence"`
}

type FundAppealTx struct {
	Slot uint64 `json:"slot"`
	Side uint8  `json:"side"`
}

type SettleTx struct {
	Slot uint64 `json:"slot"`
}

type GiveRulingTx struct {
	DisputeID uint64 `json:"disputeId"`
	Ruling    uint64 `json:"ruling"`
}

type WithdrawTx struct{}

type signedTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    TxType         `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Value   *uint256.Int   `json:"value"`
	Tx      Tx             `json:"tx"`
	Sig     [][]byte       `json:"sig"`
}

func (tx *SignedTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

func (tx *SignedTx) SigHash(chainId string) (h common.Hash, err error) {
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	h = crypto.Keccak256Hash(dat)
	return
}

// Sign sets Sender to the key's address and replaces Sig.
func (tx *SignedTx) Sign(chainId string, key *ecdsa.PrivateKey) error {
	tx.Sender = crypto.PubkeyToAddress(key.PublicKey)
	h, err := tx.SigHash(chainId)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		return err
	}
	tx.Sig = [][]byte{sig}
	return nil
}

// RecoverSender checks the signature and returns the signing address.
func (tx *SignedTx) RecoverSender(chainId string) (addr common.Address, err error) {
	if len(tx.Sig) != 1 || len(tx.Sig[0]) != crypto.SignatureLength {
		err = ErrMissingSignature
		return
	}
	h, err := tx.SigHash(chainId)
	if err != nil {
		return
	}
	pub, err := crypto.SigToPub(h[:], tx.Sig[0])
	if err != nil {
		return
	}
	addr = crypto.PubkeyToAddress(*pub)
	if addr != tx.Sender {
		err = ErrSenderMismatch
	}
	return
}

// Amount is the attached value, zero when absent.
func (tx *SignedTx) Amount() *uint256.Int {
	if tx.Value == nil {
		return new(uint256.Int)
	}
	return tx.Value.Clone()
}

func parseTxType(dat []byte) TxType {
	var tx struct {
		Type TxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return TxTypeUnknown
	}
	return tx.Type
}

func unmarshalSignedTx[Tx any](dat []byte) (stx *SignedTx, err error) {
	var txt signedTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != TxVersion1 {
		return nil, ErrUnsupportedTxVersion
	}
	stx = new(SignedTx)
	stx.Version = txt.Version
	stx.Type = txt.Type
	stx.Nonce = txt.Nonce
	stx.Sender = txt.Sender
	stx.Value = txt.Value
	stx.Tx = &txt.Tx
	stx.Sig = txt.Sig
	return
}

func UnmarshalSignedTx(dat []byte) (stx *SignedTx, err error) {
	tp := parseTxType(dat)
	switch tp {
	case TxTypeTransfer:
		return unmarshalSignedTx[TransferTx](dat)
	case TxTypeCreateSettings:
		return unmarshalSignedTx[CreateSettingsTx](dat)
	case TxTypeCreateList:
		return unmarshalSignedTx[CreateListTx](dat)
	case TxTypeUpdateList:
		return unmarshalSignedTx[UpdateListTx](dat)
	case TxTypeAddItem:
		return unmarshalSignedTx[AddItemTx](dat)
	case TxTypeAddItemInFirstFreeSlot:
		return unmarshalSignedTx[AddItemInFirstFreeSlotTx](dat)
	case TxTypeRemoveItem:
		return unmarshalSignedTx[RemoveItemTx](dat)
	case TxTypeEditItem:
		return unmarshalSignedTx[EditItemTx](dat)
	case TxTypeEditItemInFirstFreeSlot:
		return unmarshalSignedTx[EditItemInFirstFreeSlotTx](dat)
	case TxTypeExecuteRequest:
		return unmarshalSignedTx[ExecuteRequestTx](dat)
	case TxTypeChallengeRequest:
		return unmarshalSignedTx[ChallengeRequestTx](dat)
	case TxTypeFundAppeal:
		return unmarshalSignedTx[FundAppealTx](dat)
	case TxTypeSettle:
		return unmarshalSignedTx[SettleTx](dat)
	case TxTypeGiveRuling:
		return unmarshalSignedTx[GiveRulingTx](dat)
	case TxTypeWithdraw:
		return unmarshalSignedTx[WithdrawTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalSignedTx(stx *SignedTx) (dat []byte, err error) {
	return json.Marshal(stx)
}
