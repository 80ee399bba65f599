package qpay

import (
	"net/url"
	"strings"
)

// Form field names posted by Qpay on the ITN callback.
const (
	FieldAcquirerID     = "Response_AcquirerID"
	FieldAmount         = "Response_Amount"
	FieldBankID         = "Response_BankID"
	FieldCardExpiryDate = "Response_CardExpiryDate"
	FieldCardHolderName = "Response_CardHolderName"
	FieldCardNumber     = "Response_CardNumber"
	FieldConfirmationID = "Response_ConfirmationID"
	FieldCurrencyCode   = "Response_CurrencyCode"
	FieldResponseDate   = "Response_EZConnectResponseDate"
	FieldLang           = "Response_Lang"
	FieldMerchantID     = "Response_MerchantID"
	FieldSessionID      = "Response_MerchantModuleSessionID"
	FieldPUN            = "Response_PUN"
	FieldStatus         = "Response_Status"
	FieldStatusMessage  = "Response_StatusMessage"
	FieldSecureHash     = "Response_SecureHash"
)

// StatusSuccess is the only Response_Status that means the buyer paid.
const StatusSuccess = "0000"

const notificationFieldNum = 16

// Notification is one inbound ITN as posted by the processor.
type Notification struct {
	AcquirerID        string
	Amount            string
	BankID            string
	CardExpiryDate    string
	CardHolderName    string
	CardNumber        string
	ConfirmationID    string
	CurrencyCode      string
	ResponseDate      string
	Lang              string
	MerchantID        string
	MerchantSessionID string
	PUN               string
	Status            string
	StatusMessage     string
	SecureHash        string
}

// ParseNotification maps form values onto a Notification. It returns nil when
// none of the ITN fields are present.
func ParseNotification(values url.Values) *Notification {
	if len(values) == 0 {
		return nil
	}

	n := &Notification{
		AcquirerID:        values.Get(FieldAcquirerID),
		Amount:            values.Get(FieldAmount),
		BankID:            values.Get(FieldBankID),
		CardExpiryDate:    values.Get(FieldCardExpiryDate),
		CardHolderName:    values.Get(FieldCardHolderName),
		CardNumber:        values.Get(FieldCardNumber),
		ConfirmationID:    values.Get(FieldConfirmationID),
		CurrencyCode:      values.Get(FieldCurrencyCode),
		ResponseDate:      values.Get(FieldResponseDate),
		Lang:              values.Get(FieldLang),
		MerchantID:        values.Get(FieldMerchantID),
		MerchantSessionID: values.Get(FieldSessionID),
		PUN:               values.Get(FieldPUN),
		Status:            values.Get(FieldStatus),
		StatusMessage:     values.Get(FieldStatusMessage),
		SecureHash:        values.Get(FieldSecureHash),
	}
	if n.Empty() {
		return nil
	}
	return n
}

func (n *Notification) Empty() bool {
	if n == nil {
		return true
	}
	for _, v := range n.values() {
		if v != "" {
			return false
		}
	}
	return n.SecureHash == ""
}

func (n *Notification) Success() bool {
	return n.Status == StatusSuccess
}

// CanonicalFields returns the hashed values in protocol order. Spaces in the
// status message are encoded as '+' the way the processor signs them.
func (n *Notification) CanonicalFields() []string {
	return n.values()
}

func (n *Notification) values() []string {
	return []string{
		n.AcquirerID,
		n.Amount,
		n.BankID,
		n.CardExpiryDate,
		n.CardHolderName,
		n.CardNumber,
		n.ConfirmationID,
		n.CurrencyCode,
		n.ResponseDate,
		n.Lang,
		n.MerchantID,
		n.MerchantSessionID,
		n.PUN,
		n.Status,
		strings.ReplaceAll(n.StatusMessage, " ", "+"),
	}
}

// Sign fills SecureHash for secret. Used by tests and sandbox tooling that
// play the processor's side.
func (n *Notification) Sign(secret string) {
	n.SecureHash = Sign(secret, n.CanonicalFields()...)
}

// Form renders the notification back into ITN form values.
func (n *Notification) Form() url.Values {
	v := make(url.Values, notificationFieldNum)
	v.Set(FieldAcquirerID, n.AcquirerID)
	v.Set(FieldAmount, n.Amount)
	v.Set(FieldBankID, n.BankID)
	v.Set(FieldCardExpiryDate, n.CardExpiryDate)
	v.Set(FieldCardHolderName, n.CardHolderName)
	v.Set(FieldCardNumber, n.CardNumber)
	v.Set(FieldConfirmationID, n.ConfirmationID)
	v.Set(FieldCurrencyCode, n.CurrencyCode)
	v.Set(FieldResponseDate, n.ResponseDate)
	v.Set(FieldLang, n.Lang)
	v.Set(FieldMerchantID, n.MerchantID)
	v.Set(FieldSessionID, n.MerchantSessionID)
	v.Set(FieldPUN, n.PUN)
	v.Set(FieldStatus, n.Status)
	v.Set(FieldStatusMessage, n.StatusMessage)
	v.Set(FieldSecureHash, n.SecureHash)
	return v
}
