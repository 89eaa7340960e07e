package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
)

var _ repository.CallbackLogRepository = (*callbackLogRepo)(nil)

type callbackLogRepo struct{ pool *pgxpool.Pool }

func NewCallbackLogRepo(pool *pgxpool.Pool) *callbackLogRepo {
	return &callbackLogRepo{pool: pool}
}

func (r *callbackLogRepo) Append(ctx context.Context, tx repository.Tx, e *model.CallbackLogEntry) (bool, error) {
	const q = `
INSERT INTO callback_log (id, gateway, event_key, transaction_id, outcome, payload, received_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (gateway, event_key) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, e.ID, e.Gateway, e.EventKey, e.TransactionID, string(e.Outcome), e.Payload, e.ReceivedAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}
