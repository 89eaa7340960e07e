package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/usecase"
)

const maxCallbackBody = 64 << 10

const (
	pageStatusSuccess = "success"
	pageStatusFailed  = "failed"
	pageStatusPending = "pending"
)

type callbackAck struct {
	Received  bool   `json:"received"`
	Status    string `json:"status,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	req := adapter.CallbackRequest{Header: r.Header.Clone(), Body: body}
	if isFormPost(r) {
		form, perr := url.ParseQuery(string(body))
		if perr != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		req.Form = form
	}

	res, err := s.deps.Callbacks.Handle(ctx, req)
	if errors.Is(err, domain.ErrAuthenticity) || errors.Is(err, domain.ErrUnknownTransaction) {
		// details stay in the logs
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if s.deps.Gateway.ResponseStyle() == adapter.CallbackResponseRedirect {
		txnID := ""
		if res != nil {
			txnID = res.TransactionID
		}
		reason := model.ReasonFor(err)
		if err == nil {
			reason = res.Reason
		}
		target := statusURL(s.cfg.Payment.StatusPageURL, pageStatus(res, err), txnID, string(reason))
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	if err != nil {
		// a non-2xx makes the gateway redeliver, and redelivery is idempotent
		log.Error().Err(err).Msg("callback not applied")
		writeError(w, http.StatusInternalServerError, string(model.ReasonFor(err)))
		return
	}
	writeJSON(w, http.StatusOK, callbackAck{
		Received:  true,
		Status:    string(res.Status),
		Duplicate: res.Duplicate,
		Ignored:   res.Ignored,
	})
}

// pageStatus is the coarse outcome shown to the payer.
func pageStatus(res *usecase.CallbackResult, err error) string {
	switch {
	case err != nil && res != nil && res.Status == model.PaymentStatusConfirmed:
		// charged; the membership is granted once reconcile is retried
		return pageStatusPending
	case err != nil || res == nil:
		return pageStatusFailed
	case res.Ignored:
		return pageStatusPending
	case res.Status == model.PaymentStatusConfirmed:
		return pageStatusSuccess
	case res.Status.IsPending():
		return pageStatusPending
	}
	return pageStatusFailed
}

func isFormPost(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/x-www-form-urlencoded"
}
