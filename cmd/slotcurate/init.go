package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/calehh/slotcurate/config"
	"github.com/calehh/slotcurate/crypto"
	"github.com/calehh/slotcurate/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

type printInfo struct {
	ChainID    string          `json:"chain_id"`
	NodeID     string          `json:"node_id"`
	Owner      string          `json:"owner"`
	AppMessage json.RawMessage `json:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize validator, owner key, genesis and configuration files",
	Args:  cobra.ExactArgs(0),
	RunE:  initRun,
}

func init() {
	initCmd.Flags().BoolP(FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(FlagHome, "", "home directory")
	initCmd.Flags().String(FlagBalance, "1000000000000000000000", "genesis balance of the owner account")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(FlagHome)
	chainID, _ := cmd.Flags().GetString(FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(FlagOverwrite)
	balanceStr, _ := cmd.Flags().GetString(FlagBalance)

	if chainID == "" {
		chainID = fmt.Sprintf("test-chain-%v", rand.Uint64())
	}
	balance, err := uint256.FromDecimal(balanceStr)
	if err != nil {
		return fmt.Errorf("invalid balance %q: %w", balanceStr, err)
	}

	cfg := config.DefaultConfig(home)
	genFile := cfg.GenesisFile()
	if _, err := os.Stat(genFile); err == nil && !overwrite {
		return fmt.Errorf("genesis file %v already exists", genFile)
	}

	nodeID, pk, err := config.InitializeNodeValidatorFiles(cfg, nil)
	if err != nil {
		return err
	}

	owner, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	if err := owner.Save(cfg.OwnerKeyFile()); err != nil {
		return err
	}

	appState, err := json.Marshal(types.DefaultAppGenesisState(owner.Address(), balance))
	if err != nil {
		return err
	}
	genesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators: []types.GenesisValidator{
			{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower},
		},
		AppState: appState,
	}
	if err = types.ExportGenesisFile(genesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	cfg.WriteConfigFiles()
	return displayInfo(printInfo{
		ChainID:    chainID,
		NodeID:     nodeID,
		Owner:      owner.Address().Hex(),
		AppMessage: appState,
	})
}
