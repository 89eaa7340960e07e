package http

import (
	"html/template"
	"net/http"

	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
)

var continuationPage = template.Must(template.New("continue").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Redirecting to payment</title>
</head>
<body>
{{if .FormAction}}
<form id="pay" method="post" action="{{.FormAction}}">
{{range $k, $v := .Fields}}<input type="hidden" name="{{$k}}" value="{{$v}}" />
{{end}}<noscript><button type="submit">Continue to payment</button></noscript>
</form>
<script>document.getElementById("pay").submit();</script>
{{else}}
<div id="payment" data-txnid="{{.TxnID}}" data-client-secret="{{.ClientSecret}}" data-amount="{{.Amount}}" data-currency="{{.Currency}}"></div>
{{end}}
</body>
</html>`))

var statusPage = template.Must(template.New("status").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Payment {{.Status}}</title>
</head>
<body>
<div class="card {{.Status}}">
  <h2>{{.Title}}</h2>
  <p>{{.Message}}</p>
  {{if .TxnID}}<p class="small">Transaction: {{.TxnID}}</p>{{end}}
  {{if .Reason}}<p class="small" data-reason="{{.Reason}}">{{.ReasonText}}</p>{{end}}
  {{if .Membership}}<p>{{.Membership}}</p>{{end}}
</div>
</body>
</html>`))

type statusView struct {
	Status     string
	Title      string
	Message    string
	TxnID      string
	Reason     string
	ReasonText string
	Membership string
}

// knownReasons bounds what the page echoes back from its query string.
var knownReasons = map[model.ReasonCode]bool{
	model.ReasonPaymentDeclined:    true,
	model.ReasonInvalidCallback:    true,
	model.ReasonUnknownTransaction: true,
	model.ReasonNotConfirmed:       true,
	model.ReasonGatewayUnavailable: true,
	model.ReasonInternal:           true,
}

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := statusView{Status: pageStatusFailed, TxnID: q.Get("txnid")}
	switch st := q.Get("status"); st {
	case pageStatusSuccess, pageStatusPending:
		v.Status = st
	}
	msgs := s.deps.Messages
	v.Title = msgs.T("status." + v.Status + ".title")
	v.Message = msgs.T("status." + v.Status + ".message")
	if reason := model.ReasonCode(q.Get("error")); knownReasons[reason] {
		v.Reason = string(reason)
		v.ReasonText = msgs.T("reason." + v.Reason)
	}

	// the signed-in owner also sees the membership dates
	if v.Status == pageStatusSuccess && v.TxnID != "" {
		if claims, err := s.deps.Auth.ParseFromRequest(r); err == nil {
			if sub, err := s.deps.Subscriptions.FindByTransaction(r.Context(), claims.UserID(), v.TxnID); err == nil {
				v.Membership = msgs.T("status.membership", sub.StartDate.Format(model.DateLayout), sub.EndDate.Format(model.DateLayout))
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = statusPage.Execute(w, v)
}

func renderContinuation(w http.ResponseWriter, intent *model.PaymentIntent, cont *adapter.Continuation) {
	dto := toContinuationDTO(cont)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = continuationPage.Execute(w, struct {
		TxnID        string
		Amount       int64
		Currency     string
		FormAction   string
		Fields       map[string]string
		ClientSecret string
	}{
		TxnID:        intent.ID,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
		FormAction:   dto.FormAction,
		Fields:       dto.FormFields,
		ClientSecret: dto.ClientSecret,
	})
}
