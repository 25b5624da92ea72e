package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateStore persists the timestamp up to which trades are aggregated.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore keeps the checkpoint in a JSON file next to the trades
// JSONL, for runs without a database.
type FileStateStore struct {
	Path string
}

type fileCheckpoint struct {
	LastTradeTs uint64 `json:"last_trade_ts"`
	UpdatedAt   string `json:"updated_at"`
}

func (s *FileStateStore) Load(_ context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp fileCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint %s: %w", s.Path, err)
	}
	return cp.LastTradeTs, true, nil
}

func (s *FileStateStore) Save(_ context.Context, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	data, err := json.Marshal(fileCheckpoint{
		LastTradeTs: ts,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

// CheckpointStore is the storage-backed variant's dependency.
type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context, name string) (uint64, bool, error)
	SaveCheckpoint(ctx context.Context, name string, value uint64) error
}

// NamedStateStore scopes a shared checkpoint table to one aggregation job.
type NamedStateStore struct {
	Store CheckpointStore
	Name  string
}

func (s *NamedStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadCheckpoint(ctx, s.Name)
}

func (s *NamedStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveCheckpoint(ctx, s.Name, ts)
}
