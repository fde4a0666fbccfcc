package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/slotcurate/state"
	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

const (
	DefaultHomeDir  = "$HOME/.slotcurate"
	AppConfigFile   = "app.toml"
	OwnerKeyFile    = "owner_priv_key"
	NodeConfigFile  = "config.toml"
	ConfigSubFolder = "config"
)

type AppConfig struct {
	Home string `mapstructure:"-"`
	// DBBackend is the key-value store under the state tree: goleveldb or
	// memdb.
	DBBackend     string `mapstructure:"db_backend"`
	IAVLCacheSize int    `mapstructure:"iavl_cache_size"`
}

func DefaultAppConfig(home string) *AppConfig {
	return &AppConfig{
		Home:          home,
		DBBackend:     state.DefaultBackend,
		IAVLCacheSize: state.DefaultCacheSize,
	}
}

func (c *AppConfig) ValidateBasic() error {
	switch c.DBBackend {
	case "goleveldb", "memdb":
	default:
		return fmt.Errorf("unsupported db_backend %q", c.DBBackend)
	}
	if c.IAVLCacheSize < 0 {
		return fmt.Errorf("iavl_cache_size cannot be negative")
	}
	return nil
}

func (c *AppConfig) DataDir() string {
	return filepath.Join(c.Home, "data")
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *AppConfig `mapstructure:"app"`
}

func ExpandHome(home string) string {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	return home
}

func DefaultConfig(home string) *Config {
	home = ExpandHome(home)
	cfg := &Config{
		DefaultCometConfig(),
		DefaultAppConfig(home),
	}
	cfg.SetRoot(home)
	_ = os.MkdirAll(filepath.Join(home, ConfigSubFolder), DefaultDirPerm)
	return cfg
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

func (c *Config) NodeConfigFile() string {
	return filepath.Join(c.RootDir, ConfigSubFolder, NodeConfigFile)
}

func (c *Config) AppConfigFile() string {
	return filepath.Join(c.RootDir, ConfigSubFolder, AppConfigFile)
}

func (c *Config) OwnerKeyFile() string {
	return filepath.Join(c.RootDir, ConfigSubFolder, OwnerKeyFile)
}

// WriteConfigFiles writes config.toml and app.toml.
func (c *Config) WriteConfigFiles() {
	config.WriteConfigFile(c.NodeConfigFile(), c.Config)
	WriteAppConfigFile(c.AppConfigFile(), c)
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 10
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
