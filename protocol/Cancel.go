package protocol

import "encoding/xml"

// Cancel requests cancellation of an order and all of its non-terminal
// items. Cancelling an already cancelled order is a no-op.
type Cancel struct {
	XMLName xml.Name `xml:"http://www.opengis.net/oseo/1.0 Cancel"`
	Service string   `xml:"service,attr"`
	OrderID string   `xml:"orderId"`
}

// CancelAck acknowledges a Cancel.
type CancelAck struct {
	XMLName xml.Name `xml:"http://www.opengis.net/oseo/1.0 CancelAck"`
	Status  string   `xml:"status,attr"`
	OrderID string   `xml:"orderId"`
}
