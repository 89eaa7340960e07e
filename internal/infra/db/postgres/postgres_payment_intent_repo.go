package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
)

var _ repository.PaymentIntentRepository = (*paymentIntentRepo)(nil)

const intentColumns = `id, gateway, user_id, plan_id, billing_cycle, start_date, duration_days, amount, currency, description,
  payer_name, payer_email, payer_phone, status, gateway_ref, failure_code, created_at, updated_at, confirmed_at`

type paymentIntentRepo struct{ pool *pgxpool.Pool }

func NewPaymentIntentRepo(pool *pgxpool.Pool) *paymentIntentRepo {
	return &paymentIntentRepo{pool: pool}
}

func (r *paymentIntentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	const q = `
INSERT INTO payment_intents (` + intentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Gateway, p.UserID, p.PlanID, string(p.BillingCycle), p.StartDate, p.DurationDays, p.Amount, p.Currency, p.Description,
		p.PayerName, p.PayerEmail, p.PayerPhone, string(p.Status), p.GatewayRef, p.FailureCode, p.CreatedAt, p.UpdatedAt, p.ConfirmedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return mapExecErr(err)
	}
	return nil
}

func (r *paymentIntentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	q := `SELECT ` + intentColumns + ` FROM payment_intents WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanIntent(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return p, nil
}

// TransitionIfPending is the compare-and-set every status change goes through.
// Concurrent callers race on the row; exactly one sees RowsAffected == 1.
func (r *paymentIntentRepo) TransitionIfPending(
	ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, gatewayRef, failureCode *string, at time.Time,
) (bool, error) {
	if !status.IsTerminal() {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE payment_intents
   SET status       = $2::text,
       gateway_ref  = COALESCE($3, gateway_ref),
       failure_code = $4,
       confirmed_at = CASE WHEN $2::text = 'confirmed' THEN $5 ELSE confirmed_at END,
       updated_at   = $5
 WHERE id = $1
   AND status IN ('created','awaiting_confirmation');`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), gatewayRef, failureCode, at)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentIntentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + intentColumns + ` FROM payment_intents
 WHERE status IN ('created','awaiting_confirmation') AND created_at < $1
 ORDER BY created_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limit)
}

func (r *paymentIntentRepo) ListConfirmedWithoutSubscription(ctx context.Context, tx repository.Tx, limit int) ([]*model.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + intentColumns + ` FROM payment_intents p
 WHERE p.status = 'confirmed'
   AND NOT EXISTS (SELECT 1 FROM subscriptions s WHERE s.payment_transaction_id = p.id)
 ORDER BY p.confirmed_at ASC LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

func (r *paymentIntentRepo) SumConfirmed(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0)::BIGINT FROM payment_intents WHERE status='confirmed' AND confirmed_at >= $1;`
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *paymentIntentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PaymentIntent, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.PaymentIntent
	for rows.Next() {
		p, err := scanIntent(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func scanIntent(row pgx.Row) (*model.PaymentIntent, error) {
	var (
		p      model.PaymentIntent
		cycle  string
		status string
	)
	err := row.Scan(&p.ID, &p.Gateway, &p.UserID, &p.PlanID, &cycle, &p.StartDate, &p.DurationDays, &p.Amount, &p.Currency, &p.Description,
		&p.PayerName, &p.PayerEmail, &p.PayerPhone, &status, &p.GatewayRef, &p.FailureCode, &p.CreatedAt, &p.UpdatedAt, &p.ConfirmedAt)
	if err != nil {
		return nil, err
	}
	p.BillingCycle = model.BillingCycle(cycle)
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
