package models

// OrderType discriminates the four order variants.
type OrderType string

// The four OSEO order types.
const (
	OrderTypeProduct      OrderType = "PRODUCT_ORDER"
	OrderTypeMassive      OrderType = "MASSIVE_ORDER"
	OrderTypeSubscription OrderType = "SUBSCRIPTION_ORDER"
	OrderTypeTasking      OrderType = "TASKING_ORDER"
)

// AllOrderTypes lists every order type. Each collection carries exactly one
// order configuration per entry.
var AllOrderTypes = []OrderType{
	OrderTypeProduct,
	OrderTypeMassive,
	OrderTypeSubscription,
	OrderTypeTasking,
}

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	for _, known := range AllOrderTypes {
		if t == known {
			return true
		}
	}
	return false
}
