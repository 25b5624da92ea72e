package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	MainnetChainID uint64 = 32769
	TestnetChainID uint64 = 33101
)

// ErrUnknownNetwork is returned when selecting an unconfigured chain id.
var ErrUnknownNetwork = errors.New("unknown network")

// Contracts holds the launchpad deployment on a network.
type Contracts struct {
	Factory    common.Address `json:"factory"`
	Airdropper common.Address `json:"airdropper"`
	USDC       common.Address `json:"usdc"`
}

// Network describes one EVM chain the launchpad can target.
type Network struct {
	ChainID     uint64    `json:"chain_id"`
	Name        string    `json:"name"`
	RPCURL      string    `json:"rpc_url"`
	ExplorerURL string    `json:"explorer_url"`
	Contracts   Contracts `json:"contracts"`
}

// Known returns the built-in Zilliqa EVM networks. Contract addresses are
// filled in from configuration.
func Known() []Network {
	return []Network{
		{
			ChainID:     MainnetChainID,
			Name:        "zilliqa-mainnet",
			RPCURL:      "https://api.zilliqa.com",
			ExplorerURL: "https://otterscan.zilliqa.com",
		},
		{
			ChainID:     TestnetChainID,
			Name:        "zilliqa-testnet",
			RPCURL:      "https://api.testnet.zilliqa.com",
			ExplorerURL: "https://otterscan.testnet.zilliqa.com",
		},
	}
}

// Context is the selected network, passed explicitly to whatever needs it.
// Init loads the persisted choice; Persist writes it back.
type Context struct {
	path      string
	defaultID uint64
	logger    *zap.Logger

	mu       sync.RWMutex
	networks map[uint64]Network
	current  uint64
}

type selection struct {
	ChainID   uint64 `json:"chain_id"`
	UpdatedAt string `json:"updated_at"`
}

// NewContext builds a context over networks. path may be empty, in which
// case nothing is loaded or persisted.
func NewContext(path string, networks []Network, defaultID uint64, logger *zap.Logger) (*Context, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(networks) == 0 {
		networks = Known()
	}
	byID := make(map[uint64]Network, len(networks))
	for _, n := range networks {
		byID[n.ChainID] = n
	}
	if _, ok := byID[defaultID]; !ok {
		return nil, fmt.Errorf("%w: default chain %d", ErrUnknownNetwork, defaultID)
	}
	return &Context{
		path:      path,
		defaultID: defaultID,
		logger:    logger,
		networks:  byID,
		current:   defaultID,
	}, nil
}

// Init restores the persisted selection. A missing file or a selection that
// is no longer configured falls back to the default.
func (c *Context) Init() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read network selection: %w", err)
	}

	var sel selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return fmt.Errorf("parse network selection %s: %w", c.path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.networks[sel.ChainID]; !ok {
		c.logger.Warn("persisted network not configured, using default",
			zap.Uint64("chain_id", sel.ChainID), zap.Uint64("default", c.defaultID))
		c.current = c.defaultID
		return nil
	}
	c.current = sel.ChainID
	return nil
}

// Select switches the current network. It does not persist.
func (c *Context) Select(chainID uint64) (Network, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.networks[chainID]
	if !ok {
		return Network{}, fmt.Errorf("%w: chain %d", ErrUnknownNetwork, chainID)
	}
	c.current = chainID
	return n, nil
}

// Persist writes the current selection atomically.
func (c *Context) Persist() error {
	if c.path == "" {
		return nil
	}
	c.mu.RLock()
	sel := selection{ChainID: c.current, UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	c.mu.RUnlock()

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create network dir: %w", err)
		}
	}
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal network selection: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write network selection: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename network selection: %w", err)
	}
	return nil
}

// Current returns the selected network.
func (c *Context) Current() Network {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.networks[c.current]
}

// Lookup returns a configured network by chain id.
func (c *Context) Lookup(chainID uint64) (Network, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.networks[chainID]
	return n, ok
}

// Networks lists configured networks by chain id.
func (c *Context) Networks() []Network {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Network, 0, len(c.networks))
	for _, n := range c.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}
