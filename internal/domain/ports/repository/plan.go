package repository

import (
	"context"

	"gym-membership-billing/internal/domain/model"
)

// PlanRepository is the read side of the plan catalog used by checkout.
type PlanRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
