package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calehh/slotcurate/tx"
	"github.com/stretchr/testify/require"
)

func TestKeyFile(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "owner_priv_key")
	require.NoError(t, key.Save(path))

	loaded, err := LoadKeyFile(path)
	require.NoError(t, err)
	require.Equal(t, key.Address(), loaded.Address())

	stx := &tx.SignedTx{Version: tx.TxVersion1, Type: tx.TxTypeWithdraw, Tx: &tx.WithdrawTx{}}
	require.NoError(t, loaded.SignTx("test-chain", stx))
	addr, err := stx.RecoverSender("test-chain")
	require.NoError(t, err)
	require.Equal(t, key.Address(), addr)
}

func TestLoadKeyFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))
	_, err := LoadKeyFile(path)
	require.Error(t, err)

	_, err = LoadKeyFile(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
