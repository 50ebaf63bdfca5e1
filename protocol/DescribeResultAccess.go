package protocol

import "encoding/xml"

// SubFunction values for DescribeResultAccess.
const (
	SubFunctionAllReady  = "allReady"
	SubFunctionNextReady = "nextReady"
)

// DescribeResultAccess requests the retrieval URLs of an order's completed
// items.
type DescribeResultAccess struct {
	XMLName     xml.Name `xml:"http://www.opengis.net/oseo/1.0 DescribeResultAccess"`
	Service     string   `xml:"service,attr"`
	OrderID     string   `xml:"orderId"`
	SubFunction string   `xml:"subFunction"`
}

// DescribeResultAccessResponse is the response to DescribeResultAccess.
type DescribeResultAccessResponse struct {
	XMLName xml.Name  `xml:"http://www.opengis.net/oseo/1.0 DescribeResultAccessResponse"`
	Status  string    `xml:"status,attr"`
	ItemURL []ItemURL `xml:"itemURL"`
}

// ItemURL is one retrievable artefact of a completed order item.
type ItemURL struct {
	ItemID         string `xml:"itemId"`
	ProductURL     string `xml:"itemAddress>ResourceAddress>URL"`
	ExpirationDate string `xml:"expirationDate,omitempty"`
}
