package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

const subscriptionColumns = `id, user_id, plan_id, payment_transaction_id, start_date, end_date, amount, total_duration_days, is_active, created_at`

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

// InsertIfAbsent relies on the unique constraint on payment_transaction_id, so
// two concurrent reconciles for one payment leave exactly one row.
func (r *subscriptionRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (payment_transaction_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.PaymentTransactionID, s.StartDate, s.EndDate, s.Amount, s.TotalDurationDays, s.IsActive, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// primary key clash on a retried id; the transaction row wins
			return domain.ErrDuplicateReconcile
		}
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrDuplicateReconcile
	}
	return nil
}

func (r *subscriptionRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, txnID string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE payment_transaction_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, txnID)
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return s, nil
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 ORDER BY start_date DESC, created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PaymentTransactionID, &s.StartDate, &s.EndDate, &s.Amount, &s.TotalDurationDays, &s.IsActive, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
