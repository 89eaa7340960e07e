package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
)

// PlanUseCase exposes the plans on sale to checkout pages.
type PlanUseCase struct {
	repo repository.PlanRepository
	log  *zerolog.Logger
}

func NewPlanUseCase(repo repository.PlanRepository, logger *zerolog.Logger) *PlanUseCase {
	return &PlanUseCase{repo: repo, log: logger}
}

func (uc *PlanUseCase) Get(ctx context.Context, id string) (*model.Plan, error) {
	return uc.repo.FindByID(ctx, repository.NoTX, id)
}

func (uc *PlanUseCase) ListActive(ctx context.Context) ([]*model.Plan, error) {
	return uc.repo.ListActive(ctx, repository.NoTX)
}
