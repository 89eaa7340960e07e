package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"gym-membership-billing/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

// httpStatusFor maps use case errors onto API responses. Messages are codes,
// never wrapped error text.
func httpStatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway, "gateway_unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// statusPagePath returns the path part of the configured status page URL,
// which may be absolute.
func statusPagePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/account/user/purchase-plan/payment-status"
	}
	return u.Path
}

// statusURL builds the status page link. Values are query-encoded, so nothing
// posted by a gateway reaches the page unescaped.
func statusURL(base, status, txnID, reason string) string {
	u, err := url.Parse(base)
	if err != nil {
		u = &url.URL{Path: statusPagePath(base)}
	}
	q := u.Query()
	q.Set("status", status)
	if txnID != "" {
		q.Set("txnid", txnID)
	}
	if reason != "" {
		q.Set("error", reason)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
