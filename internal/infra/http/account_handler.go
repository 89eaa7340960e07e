package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/infra/logging"
)

type subscriptionDTO struct {
	ID            string `json:"id"`
	PlanID        string `json:"plan_id"`
	TransactionID string `json:"transaction_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DurationDays  int    `json:"duration_days"`
	Amount        int64  `json:"amount"`
	IsActive      bool   `json:"is_active"`
}

func toSubscriptionDTO(s *model.Subscription) subscriptionDTO {
	return subscriptionDTO{
		ID:            s.ID,
		PlanID:        s.PlanID,
		TransactionID: s.PaymentTransactionID,
		StartDate:     s.StartDate.Format(model.DateLayout),
		EndDate:       s.EndDate.Format(model.DateLayout),
		DurationDays:  s.TotalDurationDays,
		Amount:        s.Amount,
		IsActive:      s.IsActive,
	}
}

type planDTO struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Currency    string           `json:"currency"`
	Prices      map[string]int64 `json:"prices"`
}

var allCycles = []model.BillingCycle{
	model.BillingCycleMonthly,
	model.BillingCycleQuarterly,
	model.BillingCycleHalfYearly,
	model.BillingCycleYearly,
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.deps.Plans.ListActive(r.Context())
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("list plans failed")
		code, msg := httpStatusFor(err)
		writeError(w, code, msg)
		return
	}
	out := make([]planDTO, 0, len(plans))
	for _, p := range plans {
		dto := planDTO{ID: p.ID, Name: p.Name, Description: p.Description, Currency: s.cfg.Payment.Currency, Prices: map[string]int64{}}
		for _, c := range allCycles {
			if price, err := p.PriceFor(c); err == nil {
				dto.Prices[string(c)] = price
			}
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	claims, _ := UserFromContext(r.Context())
	subs, err := s.deps.Subscriptions.ListByUser(r.Context(), claims.UserID())
	if err != nil {
		code, msg := httpStatusFor(err)
		writeError(w, code, msg)
		return
	}
	out := make([]subscriptionDTO, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionDTO(sub))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	claims, _ := UserFromContext(r.Context())
	sub, err := s.deps.Subscriptions.FindByTransaction(r.Context(), claims.UserID(), chi.URLParam(r, "txnID"))
	if err != nil {
		code, msg := httpStatusFor(err)
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionDTO(sub))
}
