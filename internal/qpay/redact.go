package qpay

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "[redacted]"

// LogFields renders n for logs. Card data is masked unless verbose is set;
// the merchant key never appears because it is not part of the payload.
func (n *Notification) LogFields(verbose bool) []zapcore.Field {
	if n == nil {
		return []zapcore.Field{zap.Bool("payload_empty", true)}
	}

	holder, number, expiry := redacted, MaskCardNumber(n.CardNumber), redacted
	if verbose {
		holder, number, expiry = n.CardHolderName, n.CardNumber, n.CardExpiryDate
	}

	return []zapcore.Field{
		zap.String("pun", n.PUN),
		zap.String("session_id", n.MerchantSessionID),
		zap.String("status", n.Status),
		zap.String("status_message", n.StatusMessage),
		zap.String("amount", n.Amount),
		zap.String("currency_code", n.CurrencyCode),
		zap.String("merchant_id", n.MerchantID),
		zap.String("bank_id", n.BankID),
		zap.String("acquirer_id", n.AcquirerID),
		zap.String("confirmation_id", n.ConfirmationID),
		zap.String("response_date", n.ResponseDate),
		zap.String("lang", n.Lang),
		zap.String("card_holder", holder),
		zap.String("card_number", number),
		zap.String("card_expiry", expiry),
		zap.String("secure_hash", n.SecureHash),
	}
}

// MaskCardNumber keeps only the last four digits. Processor-masked numbers
// such as 411111XXXXXX1111 are reduced the same way.
func MaskCardNumber(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
