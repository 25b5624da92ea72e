package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"launchpad/internal/model"
)

// JSONLTradeSink appends trades to a JSONL file, one trade per line.
// Duplicates are written as-is; readers dedupe by trade ID.
type JSONLTradeSink struct {
	path string
	mu   sync.Mutex
}

var _ TradeSink = (*JSONLTradeSink)(nil)

func NewJSONLTradeSink(path string) *JSONLTradeSink {
	return &JSONLTradeSink{path: path}
}

// Path returns the output file.
func (s *JSONLTradeSink) Path() string {
	return s.path
}

// PutTrades appends a batch of trades as JSON lines.
func (s *JSONLTradeSink) PutTrades(ctx context.Context, trades []model.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, trade := range trades {
		line, err := json.Marshal(trade)
		if err != nil {
			return fmt.Errorf("marshal trade: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write trade: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
