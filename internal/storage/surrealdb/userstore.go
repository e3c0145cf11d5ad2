package surrealdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const putAttempts = 3

// UserStore keeps every per-user document in the user_data table.
type UserStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewUserStore(db *surrealdb.DB, logger *common.Logger) *UserStore {
	return &UserStore{
		db:     db,
		logger: logger,
	}
}

func recordID(userID, subject, key string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("user_data", userID+"_"+subject+"_"+key)
}

func (s *UserStore) Get(ctx context.Context, userID, subject, key string) (*models.UserRecord, error) {
	record, err := surrealdb.Select[models.UserRecord](ctx, s.db, recordID(userID, subject, key))
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%s/%s: %w", subject, key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select user record: %w", err)
	}
	if record == nil || record.UserID == "" {
		return nil, fmt.Errorf("%s/%s: %w", subject, key, models.ErrNotFound)
	}
	return record, nil
}

func (s *UserStore) Put(ctx context.Context, record *models.UserRecord) error {
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{
		"rid":    recordID(record.UserID, record.Subject, record.Key),
		"record": record,
	}

	var lastErr error
	for attempt := 1; attempt <= putAttempts; attempt++ {
		_, err := surrealdb.Query[[]models.UserRecord](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Debug().Err(err).Int("attempt", attempt).Str("subject", record.Subject).Msg("User record upsert failed")
	}
	return fmt.Errorf("failed to put user record after retries: %w", lastErr)
}

func (s *UserStore) Delete(ctx context.Context, userID, subject, key string) error {
	_, err := surrealdb.Delete[models.UserRecord](ctx, s.db, recordID(userID, subject, key))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete user record: %w", err)
	}
	return nil
}

// List returns a user's records for a subject ordered by key.
func (s *UserStore) List(ctx context.Context, userID, subject string) ([]*models.UserRecord, error) {
	sql := "SELECT * FROM user_data WHERE user_id = $user_id AND subject = $subject"
	vars := map[string]any{
		"user_id": userID,
		"subject": subject,
	}

	results, err := surrealdb.Query[[]models.UserRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list user records: %w", err)
	}

	mapped := make([]*models.UserRecord, 0)
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			mapped = append(mapped, &(*results)[0].Result[i])
		}
	}
	sort.Slice(mapped, func(i, j int) bool { return mapped[i].Key < mapped[j].Key })
	return mapped, nil
}

var _ interfaces.UserDataStore = (*UserStore)(nil)
