package model

import "time"

// TradeWindow summarizes a pool's curve trades over a fixed time bucket.
// Volumes are human decimal strings (18-decimal ZIL and launch token).
type TradeWindow struct {
	ChainID        uint64    `json:"chain_id"`
	PoolAddress    string    `json:"pool_address"`
	WindowSizeSecs int64     `json:"window_size_secs"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	BuyCount       uint64    `json:"buy_count"`
	SellCount      uint64    `json:"sell_count"`
	ZilIn          string    `json:"zil_in"`
	ZilOut         string    `json:"zil_out"`
	TokensBought   string    `json:"tokens_bought"`
	TokensSold     string    `json:"tokens_sold"`
	Fees           string    `json:"fees"`
	OpenPrice      string    `json:"open_price"`
	ClosePrice     string    `json:"close_price"`
	FirstBlock     uint64    `json:"first_block"`
	LastBlock      uint64    `json:"last_block"`
}
