package protocol

import "encoding/xml"

// Submit places a new order.
type Submit struct {
	XMLName            xml.Name            `xml:"http://www.opengis.net/oseo/1.0 Submit"`
	Service            string              `xml:"service,attr"`
	OrderSpecification *OrderSpecification `xml:"orderSpecification"`
	// QuotationID requests a quotation-based submit, which this server does
	// not implement.
	QuotationID        string `xml:"quotationId"`
	StatusNotification string `xml:"statusNotification"`
}

// OrderSpecification is the body of a Submit request.
type OrderSpecification struct {
	OrderReference      string               `xml:"orderReference"`
	OrderRemark         string               `xml:"orderRemark"`
	Packaging           string               `xml:"packaging"`
	Priority            string               `xml:"priority"`
	OrderType           string               `xml:"orderType"`
	DeliveryInformation *DeliveryInformation `xml:"deliveryInformation"`
	InvoiceAddress      *DeliveryAddress     `xml:"invoiceAddress"`
	Option              []Option             `xml:"option"`
	DeliveryOptions     *DeliveryOptions     `xml:"deliveryOptions"`
	OrderItem           []SubmitOrderItem    `xml:"orderItem"`
}

// SubmitOrderItem is one requested item within a Submit.
type SubmitOrderItem struct {
	ItemID                string           `xml:"itemId"`
	ProductOrderOptionsID string           `xml:"productOrderOptionsId"`
	OrderItemRemark       string           `xml:"orderItemRemark"`
	ProductID             *ProductID       `xml:"productId"`
	SubscriptionID        *ProductID       `xml:"subscriptionId"`
	TaskingRequestID      string           `xml:"taskingRequestId"`
	Option                []Option         `xml:"option"`
	DeliveryOptions       *DeliveryOptions `xml:"deliveryOptions"`
}

// SubmitAck acknowledges a successful Submit.
type SubmitAck struct {
	XMLName        xml.Name `xml:"http://www.opengis.net/oseo/1.0 SubmitAck"`
	Status         string   `xml:"status,attr"`
	OrderID        string   `xml:"orderId"`
	OrderReference string   `xml:"orderReference,omitempty"`
}
