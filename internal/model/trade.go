package model

// TradeKind distinguishes curve buys from sells.
type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// Trade is a decoded bonding-curve trade. Amounts are base-unit decimal
// strings so they survive JSON consumers without precision loss.
type Trade struct {
	Kind        TradeKind `json:"kind"`
	ChainID     uint64    `json:"chain_id"`
	Pool        string    `json:"pool"`
	Trader      string    `json:"trader"`
	ZilAmount   string    `json:"zil_amount"`
	TokenAmount string    `json:"token_amount"`
	Fee         string    `json:"fee"`
	NewPrice    string    `json:"new_price"`
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number"`
	LogIndex    uint64    `json:"log_index"`
	Timestamp   uint64    `json:"timestamp"`
}

// ID is the dedupe key for a trade.
func (t Trade) ID() string {
	return TradeID(t.BlockNumber, t.TxHash, t.LogIndex)
}
