package trades

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"launchpad/internal/contracts"
	"launchpad/internal/model"
)

// Outcome tags a per-log decode result.
type Outcome int

const (
	// OutcomeOK carries a decoded trade.
	OutcomeOK Outcome = iota
	// OutcomeSkip means the log is not a trade event.
	OutcomeSkip
	// OutcomeMalformed means topic0 matched but the payload did not decode.
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSkip:
		return "skip"
	case OutcomeMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is Ok(Trade) | Skip | Malformed(Err).
type Result struct {
	Outcome Outcome
	Trade   model.Trade
	Err     error
}

func ok(t model.Trade) Result    { return Result{Outcome: OutcomeOK, Trade: t} }
func skip() Result               { return Result{Outcome: OutcomeSkip} }
func malformed(err error) Result { return Result{Outcome: OutcomeMalformed, Err: err} }

// Decoder turns bonding-pool Buy/Sell logs into trades.
type Decoder struct {
	poolABI     abi.ABI
	topicToKind map[string]model.TradeKind
}

// NewDecoder builds a decoder for the bonding-pool trade events.
func NewDecoder() (*Decoder, error) {
	poolABI, err := contracts.BondingPoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	return &Decoder{
		poolABI: poolABI,
		topicToKind: map[string]model.TradeKind{
			strings.ToLower(poolABI.Events["Buy"].ID.Hex()):  model.TradeBuy,
			strings.ToLower(poolABI.Events["Sell"].ID.Hex()): model.TradeSell,
		},
	}, nil
}

// Topics returns the topic0 filter for eth_getLogs.
func (d *Decoder) Topics() []common.Hash {
	return []common.Hash{d.poolABI.Events["Buy"].ID, d.poolABI.Events["Sell"].ID}
}

// CanDecode checks if the topic0 is a trade event.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, found := d.topicToKind[strings.ToLower(topic0)]
	return found
}

// Decode classifies and decodes one log.
func (d *Decoder) Decode(log model.LogRecord) Result {
	kind, found := d.topicToKind[log.Topic0()]
	if !found {
		return skip()
	}

	var (
		trade model.Trade
		err   error
	)
	switch kind {
	case model.TradeBuy:
		trade, err = d.decodeBuy(log)
	case model.TradeSell:
		trade, err = d.decodeSell(log)
	}
	if err != nil {
		return malformed(fmt.Errorf("%s log %s: %w", kind, log.ID(), err))
	}
	return ok(trade)
}

// DecodeAll decodes logs in input order, dropping skipped and malformed
// entries. onMalformed, if set, sees each dropped malformed log.
func (d *Decoder) DecodeAll(logs []model.LogRecord, onMalformed func(model.DecodeFailure)) []model.Trade {
	out := make([]model.Trade, 0, len(logs))
	for _, log := range logs {
		res := d.Decode(log)
		switch res.Outcome {
		case OutcomeOK:
			out = append(out, res.Trade)
		case OutcomeMalformed:
			if onMalformed != nil {
				onMalformed(model.NewDecodeFailure(log, res.Err))
			}
		}
	}
	return out
}

// DecodeTradeLogs decodes the trade events in logs and drops everything else.
// The result keeps input order.
func DecodeTradeLogs(logs []model.LogRecord) ([]model.Trade, error) {
	d, err := NewDecoder()
	if err != nil {
		return nil, err
	}
	return d.DecodeAll(logs, nil), nil
}

type tradeFields struct {
	trader   common.Address
	zil      *big.Int
	tokens   *big.Int
	fee      *big.Int
	newPrice *big.Int
}

// Buy(buyer indexed, zilIn, tokensOut, fee, newPrice)
func (d *Decoder) decodeBuy(log model.LogRecord) (model.Trade, error) {
	trader, ints, err := d.decodeEvent("Buy", log)
	if err != nil {
		return model.Trade{}, err
	}
	return buildTrade(log, model.TradeBuy, tradeFields{
		trader:   trader,
		zil:      ints[0],
		tokens:   ints[1],
		fee:      ints[2],
		newPrice: ints[3],
	}), nil
}

// Sell(seller indexed, tokensIn, zilOut, fee, newPrice)
func (d *Decoder) decodeSell(log model.LogRecord) (model.Trade, error) {
	trader, ints, err := d.decodeEvent("Sell", log)
	if err != nil {
		return model.Trade{}, err
	}
	return buildTrade(log, model.TradeSell, tradeFields{
		trader:   trader,
		tokens:   ints[0],
		zil:      ints[1],
		fee:      ints[2],
		newPrice: ints[3],
	}), nil
}

// decodeEvent reads the layout both events share: one indexed address and
// four uint256 values.
func (d *Decoder) decodeEvent(name string, log model.LogRecord) (common.Address, []*big.Int, error) {
	event := d.poolABI.Events[name]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return common.Address{}, nil, err
	}

	var indexed struct {
		Buyer  common.Address
		Seller common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return common.Address{}, nil, fmt.Errorf("parse topics: %w", err)
	}
	trader := indexed.Buyer
	if name == "Sell" {
		trader = indexed.Seller
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return common.Address{}, nil, err
	}
	if len(values) != 4 {
		return common.Address{}, nil, fmt.Errorf("unexpected %s values: %d", strings.ToLower(name), len(values))
	}
	ints := make([]*big.Int, len(values))
	for i, v := range values {
		n, isBig := v.(*big.Int)
		if !isBig || n == nil {
			return common.Address{}, nil, fmt.Errorf("field %d: unsupported type %T", i, v)
		}
		ints[i] = n
	}
	return trader, ints, nil
}

func buildTrade(log model.LogRecord, kind model.TradeKind, f tradeFields) model.Trade {
	return model.Trade{
		Kind:        kind,
		ChainID:     log.ChainID,
		Pool:        log.Address,
		Trader:      f.trader.Hex(),
		ZilAmount:   f.zil.String(),
		TokenAmount: f.tokens.String(),
		Fee:         f.fee.String(),
		NewPrice:    f.newPrice.String(),
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.LogIndex,
		Timestamp:   log.Timestamp,
	}
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
