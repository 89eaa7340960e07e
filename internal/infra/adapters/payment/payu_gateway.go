// File: internal/infra/adapters/payment/payu_gateway.go
package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*PayUGateway)(nil)

// PayU pads both hash strings with five reserved empty fields after the udfs.
const payuReservedFields = 5

// PayUHashFields are the transaction fields covered by the PayU hashes, in
// the exact string form sent on the wire.
type PayUHashFields struct {
	Key         string
	TxnID       string
	Amount      string // major units, two decimals ("499.00")
	ProductInfo string
	FirstName   string
	Email       string
	UDF         [5]string
}

// RequestHash computes
// sha512(key|txnid|amount|productinfo|firstname|email|udf1|..|udf5||||||salt).
func RequestHash(f PayUHashFields, salt string) string {
	parts := make([]string, 0, 17)
	parts = append(parts, f.Key, f.TxnID, f.Amount, f.ProductInfo, f.FirstName, f.Email)
	parts = append(parts, f.UDF[:]...)
	for i := 0; i < payuReservedFields; i++ {
		parts = append(parts, "")
	}
	parts = append(parts, salt)
	return sha512Hex(strings.Join(parts, "|"))
}

// ResponseHash computes the reverse hash PayU posts back:
// sha512([additionalCharges|]salt|status||||||udf5|..|udf1|email|firstname|productinfo|amount|txnid|key).
func ResponseHash(f PayUHashFields, status, salt, additionalCharges string) string {
	parts := make([]string, 0, 19)
	if additionalCharges != "" {
		parts = append(parts, additionalCharges)
	}
	parts = append(parts, salt, status)
	for i := 0; i < payuReservedFields; i++ {
		parts = append(parts, "")
	}
	for i := len(f.UDF) - 1; i >= 0; i-- {
		parts = append(parts, f.UDF[i])
	}
	parts = append(parts, f.Email, f.FirstName, f.ProductInfo, f.Amount, f.TxnID, f.Key)
	return sha512Hex(strings.Join(parts, "|"))
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FormatMajor renders minor units as a PayU amount string ("49900" -> "499.00").
func FormatMajor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// ParseMinor is the inverse of FormatMajor. Amounts with more than two
// decimals of precision are rejected.
func ParseMinor(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	minor := d.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has sub-minor precision", s)
	}
	return minor.IntPart(), nil
}

// PayUGateway is the hash-redirect gateway: the browser auto-submits a signed
// form to PayU's hosted page and PayU posts the result back to surl/furl.
type PayUGateway struct {
	key        string
	salt       string
	baseURL    string
	successURL string
	failureURL string
	now        func() time.Time
}

func NewPayUGateway(key, salt, baseURL, successURL, failureURL string) (*PayUGateway, error) {
	if key == "" || salt == "" {
		return nil, errors.New("payu key and salt are required")
	}
	for _, u := range []string{baseURL, successURL, failureURL} {
		if _, err := url.ParseRequestURI(u); err != nil {
			return nil, fmt.Errorf("invalid payu url %q: %w", u, err)
		}
	}
	return &PayUGateway{
		key:        key,
		salt:       salt,
		baseURL:    baseURL,
		successURL: successURL,
		failureURL: failureURL,
		now:        time.Now,
	}, nil
}

func (g *PayUGateway) Name() string { return "payu" }

func (g *PayUGateway) ResponseStyle() adapter.CallbackResponseStyle {
	return adapter.CallbackResponseRedirect
}

// Initiate builds the signed redirect form. No network call happens here; the
// payer's browser talks to PayU directly.
func (g *PayUGateway) Initiate(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	if req.TransactionID == "" {
		return nil, errors.New("payu: transaction id is required")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("payu: invalid amount %d", req.Amount)
	}
	if req.PayerEmail == "" || req.Description == "" {
		return nil, errors.New("payu: productinfo and email are required")
	}

	f := PayUHashFields{
		Key:         g.key,
		TxnID:       req.TransactionID,
		Amount:      FormatMajor(req.Amount),
		ProductInfo: req.Description,
		FirstName:   req.PayerName,
		Email:       req.PayerEmail,
	}
	form := url.Values{}
	form.Set("key", f.Key)
	form.Set("txnid", f.TxnID)
	form.Set("amount", f.Amount)
	form.Set("productinfo", f.ProductInfo)
	form.Set("firstname", f.FirstName)
	form.Set("email", f.Email)
	form.Set("phone", req.PayerPhone)
	form.Set("surl", g.successURL)
	form.Set("furl", g.failureURL)
	form.Set("hash", RequestHash(f, g.salt))

	return &adapter.InitiateResult{
		TransactionID: req.TransactionID,
		Continuation: adapter.Continuation{
			Kind:       adapter.ContinuationRedirectForm,
			FormAction: g.baseURL,
			FormFields: form,
		},
	}, nil
}

// VerifyCallback checks the reverse hash over the posted fields. Only
// "success" and "failure" are terminal; "pending" is authentic but ignored.
func (g *PayUGateway) VerifyCallback(ctx context.Context, req adapter.CallbackRequest) (*model.GatewayCallbackEvent, error) {
	form := req.Form
	got := strings.ToLower(strings.TrimSpace(form.Get("hash")))
	if got == "" {
		return nil, fmt.Errorf("%w: missing hash", domain.ErrAuthenticity)
	}
	if form.Get("key") != g.key {
		return nil, fmt.Errorf("%w: merchant key mismatch", domain.ErrAuthenticity)
	}

	f := PayUHashFields{
		Key:         g.key,
		TxnID:       form.Get("txnid"),
		Amount:      form.Get("amount"),
		ProductInfo: form.Get("productinfo"),
		FirstName:   form.Get("firstname"),
		Email:       form.Get("email"),
	}
	for i := range f.UDF {
		f.UDF[i] = form.Get(fmt.Sprintf("udf%d", i+1))
	}
	status := form.Get("status")
	want := ResponseHash(f, status, g.salt, form.Get("additionalCharges"))
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return nil, fmt.Errorf("%w: hash mismatch", domain.ErrAuthenticity)
	}
	if f.TxnID == "" {
		return nil, fmt.Errorf("%w: missing txnid", domain.ErrAuthenticity)
	}

	var outcome model.CallbackOutcome
	switch strings.ToLower(status) {
	case "success":
		outcome = model.CallbackOutcomeSuccess
	case "failure", "failed":
		outcome = model.CallbackOutcomeFailure
	default:
		return nil, fmt.Errorf("%w: payu status %q", domain.ErrEventIgnored, status)
	}

	amount, err := ParseMinor(f.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticity, err)
	}
	mihpayid := form.Get("mihpayid")

	return &model.GatewayCallbackEvent{
		Gateway:       g.Name(),
		EventKey:      strings.Join([]string{f.TxnID, strings.ToLower(status), mihpayid}, ":"),
		TransactionID: f.TxnID,
		Outcome:       outcome,
		Amount:        amount,
		GatewayRef:    mihpayid,
		ErrorCode:     form.Get("error"),
		RawPayload:    []byte(scrubForm(form).Encode()),
		ReceivedAt:    g.now().UTC(),
	}, nil
}

// scrubForm drops the hash before the payload goes to the callback log.
func scrubForm(in url.Values) url.Values {
	out := url.Values{}
	for k, v := range in {
		if k == "hash" {
			continue
		}
		out[k] = v
	}
	return out
}
