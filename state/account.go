package state

import (
	"fmt"

	"github.com/calehh/slotcurate/tx"
	"github.com/calehh/slotcurate/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// EscrowAddress holds every stake, deposit and contribution until it is
// paid out.
var EscrowAddress = common.BytesToAddress(crypto.Keccak256([]byte(types.ModuleName + "/escrow"))[12:])

type Account struct {
	Address common.Address `json:"address"`
	Balance *uint256.Int   `json:"balance"`
	Nonce   uint64         `json:"nonce"`
}

func NewAccount(addr common.Address) *Account {
	return &Account{
		Address: addr,
		Balance: new(uint256.Int),
	}
}

func (a *Account) Clone() *Account {
	n := *a
	if a.Balance != nil {
		n.Balance = a.Balance.Clone()
	} else {
		n.Balance = new(uint256.Int)
	}
	return &n
}

// Vault moves value between accounts. The default vault is the account
// bank; a failing transfer must leave balances untouched.
type Vault interface {
	Transfer(from, to common.Address, amount *uint256.Int) error
}

type bankVault struct {
	s *State
}

func (v bankVault) Transfer(from, to common.Address, amount *uint256.Int) error {
	return v.s.move(from, to, amount)
}

func (s *State) vault() Vault {
	var v Vault = bankVault{s: s}
	if s.vaultHook != nil {
		v = s.vaultHook(v)
	}
	return v
}

// WrapVault installs a middleware around the bank vault. It is carried
// over to clones of the state.
func (s *State) WrapVault(hook func(Vault) Vault) {
	s.vaultHook = hook
}

func (s *State) FindAccount(addr common.Address) (acnt *Account, err error) {
	acnt, ok, err := s.acnts.get(s.db, addr)
	if err != nil || !ok {
		return nil, err
	}
	return
}

// GetAccount returns the account at addr, or an empty one if none is stored.
func (s *State) GetAccount(addr common.Address) (acnt *Account, err error) {
	acnt, err = s.FindAccount(addr)
	if err != nil {
		return nil, err
	}
	if acnt == nil {
		acnt = NewAccount(addr)
	}
	if acnt.Balance == nil {
		acnt.Balance = new(uint256.Int)
	}
	return
}

func (s *State) AddAccount(acnt *Account) (err error) {
	a, err := s.FindAccount(acnt.Address)
	if err != nil {
		return err
	}
	if a != nil {
		return ErrAccountAlreadyExists
	}
	s.acnts.set(acnt.Address, acnt.Clone())
	return
}

func (s *State) Balance(addr common.Address) (*uint256.Int, error) {
	a, err := s.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return a.Balance.Clone(), nil
}

func (s *State) move(from, to common.Address, amount *uint256.Int) (err error) {
	if amount == nil || amount.IsZero() {
		return
	}
	src, err := s.GetAccount(from)
	if err != nil {
		return
	}
	left, underflow := new(uint256.Int).SubOverflow(src.Balance, amount)
	if underflow {
		return fmt.Errorf("%w: %v has %v, needs %v", ErrInsufficientBalance, from.Hex(), src.Balance, amount)
	}
	if from == to {
		return
	}
	dst, err := s.GetAccount(to)
	if err != nil {
		return
	}
	total, overflow := new(uint256.Int).AddOverflow(dst.Balance, amount)
	if overflow {
		return ErrAmountOverflow
	}
	src.Balance = left
	dst.Balance = total
	s.acnts.set(from, src)
	s.acnts.set(to, dst)
	return
}

// collect takes value from a caller into escrow.
func (s *State) collect(from common.Address, amount *uint256.Int) error {
	return s.move(from, EscrowAddress, amount)
}

// refund returns value to a caller within the same operation; failure
// aborts the operation.
func (s *State) refund(to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	return s.vault().Transfer(EscrowAddress, to, amount)
}

// pay sends an escrowed amount to a payee. A failing transfer is credited
// to the payee's unpaid balance so other payees are not blocked.
func (s *State) pay(to common.Address, amount *uint256.Int) (paid bool, err error) {
	if amount == nil || amount.IsZero() {
		return true, nil
	}
	terr := s.vault().Transfer(EscrowAddress, to, amount)
	if terr == nil {
		return true, nil
	}
	s.logger.Info("payout failed, crediting unpaid balance", "to", to.Hex(), "amount", amount, "err", terr)
	owed, err := s.Unpaid(to)
	if err != nil {
		return false, err
	}
	owed, overflow := owed.AddOverflow(owed, amount)
	if overflow {
		return false, ErrAmountOverflow
	}
	s.unpaid.set(to, owed)
	return false, nil
}

func (s *State) Unpaid(addr common.Address) (*uint256.Int, error) {
	v, ok, err := s.unpaid.get(s.db, addr)
	if err != nil {
		return nil, err
	}
	if !ok || v == nil {
		return new(uint256.Int), nil
	}
	return v.Clone(), nil
}

func (s *State) IncNonce(addr common.Address) error {
	a, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	a.Nonce += 1
	s.acnts.set(addr, a)
	return nil
}

func (s *State) Transfer(sender common.Address, stx *tx.TransferTx) (event *types.EventTransfer, err error) {
	err = s.atomic(func() error {
		return s.move(sender, stx.To, stx.Amount)
	})
	if err != nil {
		return nil, err
	}
	event = &types.EventTransfer{
		From:   sender,
		To:     stx.To,
		Amount: amountOrZero(stx.Amount),
	}
	return
}

// Withdraw pays out the caller's unpaid balance.
func (s *State) Withdraw(sender common.Address) (event *types.EventTransfer, err error) {
	owed, err := s.Unpaid(sender)
	if err != nil {
		return nil, err
	}
	if owed.IsZero() {
		return nil, ErrNothingToWithdraw
	}
	err = s.atomic(func() error {
		s.unpaid.remove(sender)
		return s.vault().Transfer(EscrowAddress, sender, owed)
	})
	if err != nil {
		return nil, err
	}
	event = &types.EventTransfer{
		From:   EscrowAddress,
		To:     sender,
		Amount: owed,
	}
	return
}

// Verify checks the signature and nonce of a transaction.
func (s *State) Verify(stx *tx.SignedTx, allowNonceGap bool) (err error) {
	_, err = stx.RecoverSender(s.header.ChainId)
	if err != nil {
		return
	}
	a, err := s.GetAccount(stx.Sender)
	if err != nil {
		return
	}
	if !(a.Nonce == stx.Nonce || (allowNonceGap && a.Nonce < stx.Nonce)) {
		err = fmt.Errorf("%w: expected %v got %v", ErrTxNonceInvalid, a.Nonce, stx.Nonce)
	}
	return
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
