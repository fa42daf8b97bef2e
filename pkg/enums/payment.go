package enums

import "fmt"

// PaymentMethod is how the customer says they will pay.
type PaymentMethod string

const (
	PaymentMethodBinance   PaymentMethod = "binance"
	PaymentMethodPaypal    PaymentMethod = "paypal"
	PaymentMethodZinli     PaymentMethod = "zinli"
	PaymentMethodBanesco   PaymentMethod = "banesco"
	PaymentMethodPagoMovil PaymentMethod = "pago_movil"
	PaymentMethodTransfer  PaymentMethod = "transfer"
	PaymentMethodCrypto    PaymentMethod = "crypto"
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodOther     PaymentMethod = "other"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodBinance,
	PaymentMethodPaypal,
	PaymentMethodZinli,
	PaymentMethodBanesco,
	PaymentMethodPagoMovil,
	PaymentMethodTransfer,
	PaymentMethodCrypto,
	PaymentMethodCard,
	PaymentMethodOther,
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// Label returns the display name used in notifications.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodBinance:
		return "Binance"
	case PaymentMethodPaypal:
		return "PayPal"
	case PaymentMethodZinli:
		return "Zinli"
	case PaymentMethodBanesco:
		return "Banesco"
	case PaymentMethodPagoMovil:
		return "Pago Movil"
	case PaymentMethodTransfer:
		return "Bank transfer"
	case PaymentMethodCrypto:
		return "Crypto"
	case PaymentMethodCard:
		return "Card"
	}
	return "Other"
}

// ParsePaymentMethod converts raw input; empty input yields the transfer default.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	if value == "" {
		return PaymentMethodTransfer, nil
	}
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// PaymentStatus tracks settlement of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
