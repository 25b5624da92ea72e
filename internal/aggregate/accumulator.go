package aggregate

import (
	"fmt"
	"math/big"

	"launchpad/internal/model"
)

// Accumulator holds running totals for one pool window.
type Accumulator struct {
	ChainID      uint64
	PoolAddress  string
	WindowStart  uint64
	WindowEnd    uint64
	BuyCount     uint64
	SellCount    uint64
	ZilIn        *big.Int
	ZilOut       *big.Int
	TokensBought *big.Int
	TokensSold   *big.Int
	Fees         *big.Int
	OpenPrice    *big.Int
	ClosePrice   *big.Int
	FirstBlock   uint64
	LastBlock    uint64

	openKey  position
	closeKey position
}

type position struct {
	block    uint64
	logIndex uint64
}

func (p position) before(o position) bool {
	if p.block != o.block {
		return p.block < o.block
	}
	return p.logIndex < o.logIndex
}

func NewAccumulator(trade model.Trade, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		ChainID:      trade.ChainID,
		PoolAddress:  trade.Pool,
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
		ZilIn:        big.NewInt(0),
		ZilOut:       big.NewInt(0),
		TokensBought: big.NewInt(0),
		TokensSold:   big.NewInt(0),
		Fees:         big.NewInt(0),
	}
}

// AddTrade folds one trade into the window. Trades may arrive in any order;
// open/close prices follow chain position.
func (a *Accumulator) AddTrade(trade model.Trade) error {
	zil, err := parseBigInt(trade.ZilAmount)
	if err != nil {
		return fmt.Errorf("zil amount: %w", err)
	}
	tokens, err := parseBigInt(trade.TokenAmount)
	if err != nil {
		return fmt.Errorf("token amount: %w", err)
	}
	fee, err := parseBigInt(trade.Fee)
	if err != nil {
		return fmt.Errorf("fee: %w", err)
	}
	price, err := parseBigInt(trade.NewPrice)
	if err != nil {
		return fmt.Errorf("new price: %w", err)
	}

	switch trade.Kind {
	case model.TradeBuy:
		a.BuyCount++
		a.ZilIn.Add(a.ZilIn, zil)
		a.TokensBought.Add(a.TokensBought, tokens)
	case model.TradeSell:
		a.SellCount++
		a.ZilOut.Add(a.ZilOut, zil)
		a.TokensSold.Add(a.TokensSold, tokens)
	default:
		return fmt.Errorf("unknown trade kind %q", trade.Kind)
	}
	a.Fees.Add(a.Fees, fee)

	pos := position{block: trade.BlockNumber, logIndex: trade.LogIndex}
	if a.OpenPrice == nil || pos.before(a.openKey) {
		a.OpenPrice, a.openKey = price, pos
	}
	if a.ClosePrice == nil || a.closeKey.before(pos) {
		a.ClosePrice, a.closeKey = price, pos
	}
	if a.FirstBlock == 0 || trade.BlockNumber < a.FirstBlock {
		a.FirstBlock = trade.BlockNumber
	}
	if trade.BlockNumber > a.LastBlock {
		a.LastBlock = trade.BlockNumber
	}
	return nil
}

// Trades is the number of trades folded in.
func (a *Accumulator) Trades() uint64 {
	return a.BuyCount + a.SellCount
}

// NetZil is ZilIn minus ZilOut; negative when the window was a net outflow.
func (a *Accumulator) NetZil() *big.Int {
	return new(big.Int).Sub(a.ZilIn, a.ZilOut)
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
