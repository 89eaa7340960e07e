package model

import (
	"strings"
	"time"

	"gym-membership-billing/internal/domain"
)

// BillingCycle selects which of a plan's prices is charged and how long the
// resulting membership lasts.
type BillingCycle string

const (
	BillingCycleMonthly    BillingCycle = "monthly"
	BillingCycleQuarterly  BillingCycle = "quarterly"
	BillingCycleHalfYearly BillingCycle = "half_yearly"
	BillingCycleYearly     BillingCycle = "yearly"
)

// DurationDays returns the membership length for the cycle, or 0 if unknown.
func (c BillingCycle) DurationDays() int {
	switch c {
	case BillingCycleMonthly:
		return 30
	case BillingCycleQuarterly:
		return 90
	case BillingCycleHalfYearly:
		return 180
	case BillingCycleYearly:
		return 365
	}
	return 0
}

func ParseBillingCycle(s string) (BillingCycle, error) {
	c := BillingCycle(strings.ToLower(strings.TrimSpace(s)))
	if c.DurationDays() == 0 {
		return "", domain.ErrInvalidArgument
	}
	return c, nil
}

// Plan is a gym membership plan. Prices are in minor currency units.
type Plan struct {
	ID              string
	Name            string
	Description     string
	MonthlyPrice    int64
	QuarterlyPrice  int64
	HalfYearlyPrice int64
	YearlyPrice     int64
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// PriceFor returns the price charged for the given billing cycle.
func (p *Plan) PriceFor(c BillingCycle) (int64, error) {
	var price int64
	switch c {
	case BillingCycleMonthly:
		price = p.MonthlyPrice
	case BillingCycleQuarterly:
		price = p.QuarterlyPrice
	case BillingCycleHalfYearly:
		price = p.HalfYearlyPrice
	case BillingCycleYearly:
		price = p.YearlyPrice
	default:
		return 0, domain.ErrInvalidArgument
	}
	if price <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return price, nil
}
