package model

import "time"

// LaunchType identifies which launch mechanism created a pool.
type LaunchType string

const (
	LaunchBondingCurve LaunchType = "bonding_curve"
	LaunchFairLaunch   LaunchType = "fair_launch"
)

// TokenMetadata is the off-chain display record for a launched token,
// keyed by pool address.
type TokenMetadata struct {
	PoolAddress string     `json:"pool_address"`
	ChainID     uint64     `json:"chain_id"`
	LaunchType  LaunchType `json:"launch_type"`
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Website     string     `json:"website"`
	Twitter     string     `json:"twitter"`
	Telegram    string     `json:"telegram"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Image is a stored token image blob.
type Image struct {
	Key         string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}
