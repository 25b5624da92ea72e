package model

import "fmt"

// TokenMeta captures ERC20 metadata read from chain.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// TradeID builds the block:tx:logIndex key used to dedupe chain logs.
func TradeID(blockNumber uint64, txHash string, logIndex uint64) string {
	return fmt.Sprintf("%d:%s:%d", blockNumber, txHash, logIndex)
}
