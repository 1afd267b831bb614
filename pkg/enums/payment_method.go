package enums

import "slices"

// PaymentMethod describes how a buyer settles an accepted offer.
type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodInvoice  PaymentMethod = "invoice"
	PaymentMethodPostpaid PaymentMethod = "postpaid"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodInvoice,
	PaymentMethodPostpaid,
}

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	return slices.Contains(validPaymentMethods, p)
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(validPaymentMethods, value, "payment method")
}
