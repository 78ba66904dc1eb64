package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carcall/signal-server-go/internal/model"
)

type CallHistoryRepository interface {
	Append(ctx context.Context, params model.CreateCallRecordParams) (*model.CallRecord, error)
	FindByIdentity(ctx context.Context, identity string, limit, offset int) ([]model.CallRecord, error)
	CountByIdentity(ctx context.Context, identity string) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type callHistoryRepo struct {
	db *sqlx.DB
}

func NewCallHistoryRepository(db *sqlx.DB) CallHistoryRepository {
	return &callHistoryRepo{db: db}
}

func (r *callHistoryRepo) Append(ctx context.Context, params model.CreateCallRecordParams) (*model.CallRecord, error) {
	var record model.CallRecord
	err := r.db.GetContext(ctx, &record, `
		INSERT INTO call_history (caller_identity, receiver_identity, media_kind, outcome, duration_seconds)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.CallerIdentity, params.ReceiverIdentity, params.MediaKind, params.Outcome, params.DurationSeconds)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *callHistoryRepo) FindByIdentity(ctx context.Context, identity string, limit, offset int) ([]model.CallRecord, error) {
	records := []model.CallRecord{}
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM call_history
		WHERE caller_identity = $1 OR receiver_identity = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, identity, limit, offset)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *callHistoryRepo) CountByIdentity(ctx context.Context, identity string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM call_history
		WHERE caller_identity = $1 OR receiver_identity = $1
	`, identity)
	return count, err
}

func (r *callHistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM call_history WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
