package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

type systemKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// InternalStore holds system-wide settings such as provider API keys.
type InternalStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewInternalStore(db *surrealdb.DB, logger *common.Logger) *InternalStore {
	return &InternalStore{
		db:     db,
		logger: logger,
	}
}

func (s *InternalStore) GetSystemKV(ctx context.Context, key string) (string, error) {
	kv, err := surrealdb.Select[systemKV](ctx, s.db, surrealmodels.NewRecordID("system_kv", key))
	if err != nil && !isNotFoundError(err) {
		return "", fmt.Errorf("failed to select system KV %s: %w", key, err)
	}
	if err != nil || kv == nil || kv.Key == "" {
		return "", fmt.Errorf("system KV %s: %w", key, models.ErrNotFound)
	}
	return kv.Value, nil
}

func (s *InternalStore) SetSystemKV(ctx context.Context, key, value string) error {
	sql := "UPSERT type::record('system_kv', $id) CONTENT $kv"
	vars := map[string]any{"id": key, "kv": systemKV{Key: key, Value: value}}

	var lastErr error
	for attempt := 1; attempt <= putAttempts; attempt++ {
		if _, err := surrealdb.Query[[]systemKV](ctx, s.db, sql, vars); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("failed to set system KV after retries: %w", lastErr)
}

var _ interfaces.InternalStore = (*InternalStore)(nil)
