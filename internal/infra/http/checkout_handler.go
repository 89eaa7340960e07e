package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/infra/redis"
	"gym-membership-billing/internal/usecase"
)

type checkoutRequest struct {
	PlanID       string `json:"plan_id"`
	BillingCycle string `json:"billing_cycle"`
	StartDate    string `json:"start_date"` // YYYY-MM-DD, optional
	Name         string `json:"name"`
	Phone        string `json:"phone"`
}

type continuationDTO struct {
	Kind         string            `json:"kind"`
	ClientSecret string            `json:"client_secret,omitempty"`
	FormAction   string            `json:"form_action,omitempty"`
	FormFields   map[string]string `json:"form_fields,omitempty"`
}

type checkoutResponse struct {
	TransactionID string          `json:"transaction_id"`
	Gateway       string          `json:"gateway"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	StartDate     string          `json:"start_date"`
	DurationDays  int             `json:"duration_days"`
	Continuation  continuationDTO `json:"continuation"`
}

// checkoutRateLimit caps checkout attempts per user. Redis errors fail open.
func (s *Server) checkoutRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := UserFromContext(r.Context())
		if !ok || s.deps.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, err := s.deps.Limiter.Allow(r.Context(), redis.CheckoutKey(claims.UserID()), s.cfg.Checkout.RateLimit, s.cfg.Checkout.RateWindow)
		if err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("checkout rate limiter unavailable")
		} else if !allowed {
			code, msg := httpStatusFor(domain.ErrRateLimited)
			writeError(w, code, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCheckoutJSON(w http.ResponseWriter, r *http.Request) {
	claims, _ := UserFromContext(r.Context())
	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req, err := toCheckout(claims, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	intent, cont, err := s.deps.Payments.Initiate(r.Context(), req)
	if err != nil {
		code, msg := httpStatusFor(err)
		if code >= http.StatusInternalServerError {
			logging.With(r.Context(), s.log).Error().Err(err).Msg("checkout failed")
		}
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		TransactionID: intent.ID,
		Gateway:       intent.Gateway,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
		StartDate:     intent.StartDate.Format(model.DateLayout),
		DurationDays:  intent.DurationDays,
		Continuation:  toContinuationDTO(cont),
	})
}

// handleCheckoutForm serves the browser flow: it answers with a page that
// hands the payer over to the gateway.
func (s *Server) handleCheckoutForm(w http.ResponseWriter, r *http.Request) {
	claims, _ := UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	req, err := toCheckout(claims, checkoutRequest{
		PlanID:       r.PostForm.Get("plan_id"),
		BillingCycle: r.PostForm.Get("billing_cycle"),
		StartDate:    r.PostForm.Get("start_date"),
		Name:         r.PostForm.Get("name"),
		Phone:        r.PostForm.Get("phone"),
	})
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	intent, cont, err := s.deps.Payments.Initiate(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Msg("checkout failed")
		http.Redirect(w, r, statusURL(s.cfg.Payment.StatusPageURL, pageStatusFailed, "", string(model.ReasonFor(err))), http.StatusSeeOther)
		return
	}
	renderContinuation(w, intent, cont)
}

func toCheckout(claims *UserClaims, in checkoutRequest) (usecase.CheckoutRequest, error) {
	if claims == nil {
		return usecase.CheckoutRequest{}, domain.ErrInvalidArgument
	}
	cycle, err := model.ParseBillingCycle(in.BillingCycle)
	if err != nil {
		return usecase.CheckoutRequest{}, err
	}
	var start time.Time
	if s := strings.TrimSpace(in.StartDate); s != "" {
		if start, err = model.ParseDate(s); err != nil {
			return usecase.CheckoutRequest{}, err
		}
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = claims.Name
	}
	return usecase.CheckoutRequest{
		UserID:       claims.UserID(),
		PlanID:       strings.TrimSpace(in.PlanID),
		BillingCycle: cycle,
		StartDate:    start,
		PayerName:    name,
		PayerEmail:   claims.Email,
		PayerPhone:   strings.TrimSpace(in.Phone),
	}, nil
}

func toContinuationDTO(c *adapter.Continuation) continuationDTO {
	if c == nil {
		return continuationDTO{}
	}
	out := continuationDTO{Kind: string(c.Kind), ClientSecret: c.ClientSecret, FormAction: c.FormAction}
	if len(c.FormFields) > 0 {
		out.FormFields = make(map[string]string, len(c.FormFields))
		for k := range c.FormFields {
			out.FormFields[k] = c.FormFields.Get(k)
		}
	}
	return out
}
