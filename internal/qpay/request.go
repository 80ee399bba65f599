package qpay

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/shopspring/decimal"
)

const (
	SandboxGatewayURL    = "https://pguat.qcb.gov.qa/qcb-pg/api/gateway/2.0"
	ProductionGatewayURL = "https://pg-api.qpay.gov.qa/qcb-pg/api/gateway/2.0"

	// ActionPurchase is the only transaction type the gateway sends.
	ActionPurchase = "0"

	requestDateLayout = "02012006150405"
)

// Outbound form field names.
const (
	ReqAction       = "Action"
	ReqAmount       = "Amount"
	ReqBankID       = "BankID"
	ReqCurrencyCode = "CurrencyCode"
	ReqExtraFields  = "ExtraFields_f14"
	ReqLang         = "Lang"
	ReqMerchantID   = "MerchantID"
	ReqSessionID    = "MerchantModuleSessionID"
	ReqPUN          = "PUN"
	ReqQuantity     = "Quantity"
	ReqDate         = "TransactionRequestDate"
	ReqSecureHash   = "SecureHash"
)

// signedRequestFields is the hash order after the secret.
var signedRequestFields = []string{
	ReqAction,
	ReqAmount,
	ReqBankID,
	ReqCurrencyCode,
	ReqExtraFields,
	ReqLang,
	ReqMerchantID,
	ReqSessionID,
	ReqPUN,
	ReqQuantity,
	ReqDate,
}

// Credentials is the merchant configuration the core consumes.
type Credentials struct {
	MerchantID        string
	MerchantKey       string
	BankID            string
	TestMode          bool
	CurrencyCode      string
	StoreCurrency     string
	CurrencyAllowlist []string
	CallbackURL       string
}

func (c Credentials) GatewayURL() string {
	if c.TestMode {
		return SandboxGatewayURL
	}
	return ProductionGatewayURL
}

// Check reports a *ConfigurationError when the gateway cannot be used.
func (c Credentials) Check() error {
	var missing []string
	if c.MerchantID == "" {
		missing = append(missing, "merchant_id")
	}
	if c.MerchantKey == "" {
		missing = append(missing, "merchant_key")
	}
	if c.BankID == "" {
		missing = append(missing, "bank_id")
	}

	cfgErr := &ConfigurationError{Missing: missing}
	if c.StoreCurrency != "" && len(c.CurrencyAllowlist) > 0 && !slices.Contains(c.CurrencyAllowlist, c.StoreCurrency) {
		cfgErr.Detail = fmt.Sprintf("store currency %s is not supported", c.StoreCurrency)
	}

	if len(cfgErr.Missing) > 0 || cfgErr.Detail != "" {
		return cfgErr
	}
	return nil
}

// PaymentRequest is one signed redirect to the processor. SecureHash is set
// by Builder only.
type PaymentRequest struct {
	Action                 string
	Amount                 string
	BankID                 string
	CurrencyCode           string
	ExtraFields            string
	Lang                   string
	MerchantID             string
	MerchantSessionID      string
	PUN                    string
	Quantity               string
	TransactionRequestDate string
	SecureHash             string

	// Extra holds unsigned fields added by a Transform.
	Extra map[string]string

	GatewayURL string
}

type FormField struct {
	Name  string
	Value string
}

// Fields returns the form fields in the order the processor documents them,
// followed by any extra fields sorted by name.
func (r *PaymentRequest) Fields() []FormField {
	m := r.signedMap()
	fields := make([]FormField, 0, len(m)+1+len(r.Extra))
	for _, name := range signedRequestFields {
		fields = append(fields, FormField{Name: name, Value: m[name]})
	}
	fields = append(fields, FormField{Name: ReqSecureHash, Value: r.SecureHash})

	extra := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		fields = append(fields, FormField{Name: k, Value: r.Extra[k]})
	}
	return fields
}

func (r *PaymentRequest) signedMap() map[string]string {
	return map[string]string{
		ReqAction:       r.Action,
		ReqAmount:       r.Amount,
		ReqBankID:       r.BankID,
		ReqCurrencyCode: r.CurrencyCode,
		ReqExtraFields:  r.ExtraFields,
		ReqLang:         r.Lang,
		ReqMerchantID:   r.MerchantID,
		ReqSessionID:    r.MerchantSessionID,
		ReqPUN:          r.PUN,
		ReqQuantity:     r.Quantity,
		ReqDate:         r.TransactionRequestDate,
	}
}

// TransformFunc may adjust the assembled field mapping before it is signed.
// Signed fields it changes are covered by the hash computed afterwards; it
// cannot set SecureHash.
type TransformFunc func(o *order.Order, fields map[string]string)

type Builder struct {
	creds     Credentials
	now       func() time.Time
	transform TransformFunc
}

type BuilderOption func(*Builder)

func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

func WithTransform(fn TransformFunc) BuilderOption {
	return func(b *Builder) {
		b.transform = fn
	}
}

func NewBuilder(creds Credentials, opts ...BuilderOption) *Builder {
	b := &Builder{
		creds: creds,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles and signs the payment request for o. locale picks the
// payment page language.
func (b *Builder) Build(o *order.Order, locale string) (*PaymentRequest, error) {
	if err := b.creds.Check(); err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: order is nil", ErrInvalidOrder)
	}
	if o.ID <= 0 || o.Key == "" {
		return nil, fmt.Errorf("%w: order %d has no id or key", ErrInvalidOrder, o.ID)
	}
	if !o.Total.IsPositive() {
		return nil, fmt.Errorf("%w: order %d total %s is not positive", ErrInvalidOrder, o.ID, o.Total.String())
	}

	fields := map[string]string{
		ReqAction:       ActionPurchase,
		ReqAmount:       MinorUnits(o.Total),
		ReqBankID:       b.creds.BankID,
		ReqCurrencyCode: b.creds.CurrencyCode,
		ReqExtraFields:  b.creds.CallbackURL,
		ReqLang:         LangForLocale(locale),
		ReqMerchantID:   b.creds.MerchantID,
		ReqSessionID:    o.Key,
		ReqPUN:          strconv.FormatInt(o.ID, 10),
		ReqQuantity:     strconv.Itoa(o.ItemCount),
		ReqDate:         b.now().Format(requestDateLayout),
	}

	if b.transform != nil {
		b.transform(o.Clone(), fields)
	}
	delete(fields, ReqSecureHash)

	ordered := make([]string, 0, len(signedRequestFields))
	for _, name := range signedRequestFields {
		ordered = append(ordered, fields[name])
		delete(fields, name)
	}

	req := &PaymentRequest{
		Action:                 ordered[0],
		Amount:                 ordered[1],
		BankID:                 ordered[2],
		CurrencyCode:           ordered[3],
		ExtraFields:            ordered[4],
		Lang:                   ordered[5],
		MerchantID:             ordered[6],
		MerchantSessionID:      ordered[7],
		PUN:                    ordered[8],
		Quantity:               ordered[9],
		TransactionRequestDate: ordered[10],
		SecureHash:             Sign(b.creds.MerchantKey, ordered...),
		GatewayURL:             b.creds.GatewayURL(),
	}
	if len(fields) > 0 {
		req.Extra = fields
	}

	return req, nil
}

// MinorUnits converts a major-unit amount to an integer count of minor units,
// truncating any fraction below one minor unit.
func MinorUnits(total decimal.Decimal) string {
	return total.Shift(2).Truncate(0).String()
}

// MajorUnits formats a minor-unit integer string with two decimal places.
func MajorUnits(minor string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(minor))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", minor, err)
	}
	return d.Shift(-2), nil
}

func LangForLocale(locale string) string {
	if strings.Contains(strings.ToLower(locale), "ar") {
		return "AR"
	}
	return "EN"
}
