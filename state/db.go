package state

import (
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultBackend   = "goleveldb"
	DefaultCacheSize = 128
)

type Options struct {
	Backend   string
	CacheSize int
	// Arbitrator binds the ruling oracle to every state the db hands out.
	Arbitrator ArbitratorBinder
}

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, opts Options, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "statedb")
	if opts.Backend == "" {
		opts.Backend = DefaultBackend
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	var kv dbm.DB
	if opts.Backend == "memdb" {
		kv = dbm.NewMemDB()
	} else {
		kv, err = dbm.NewDB("slotcurate", opts.Backend, dir)
		if err != nil {
			return nil, err
		}
	}
	tdb := iavl.NewMutableTree(kv, opts.CacheSize, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version, "backend", opts.Backend)
	st := newState(tdb, logger)
	st.SetArbitrator(opts.Arbitrator)
	err = st.load()
	if err != nil {
		logger.Error("state load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		db:     tdb,
		state:  st,
	}
	return
}

func (db *StateDB) Close() (err error) {
	err = db.db.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

// View returns a throwaway copy of the committed state for reads and
// CheckTx.
func (db *StateDB) View() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state.Clone()
}

func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

func (db *StateDB) GetAccount(addr common.Address) (acnt *Account, height uint64, err error) {
	st := db.View()
	acnt, err = st.FindAccount(addr)
	if err != nil {
		return
	}
	if acnt != nil {
		acnt = acnt.Clone()
	}
	height = st.header.Height
	return
}
