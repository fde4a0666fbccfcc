package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/calehh/slotcurate/tx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key is an account key kept as a hex encoded secp256k1 secret.
type Key struct {
	privateKey *ecdsa.PrivateKey
}

func GenerateKey() (*Key, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Key{privateKey: priv}, nil
}

func LoadKeyFile(path string) (*Key, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(string(dat)), "0x"))
	if err != nil {
		return nil, fmt.Errorf("reading key from %v: %w", path, err)
	}
	return &Key{privateKey: priv}, nil
}

func (k *Key) Save(path string) error {
	return os.WriteFile(path, []byte(hex.EncodeToString(crypto.FromECDSA(k.privateKey))), 0o600)
}

func (k *Key) Address() common.Address {
	return crypto.PubkeyToAddress(k.privateKey.PublicKey)
}

func (k *Key) SignTx(chainId string, stx *tx.SignedTx) error {
	return stx.Sign(chainId, k.privateKey)
}
