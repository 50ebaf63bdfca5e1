package protocol

import "encoding/xml"

// GetOptions requests the ordering options for a collection, a product or a
// tasking request. Exactly one of the three selectors is expected.
type GetOptions struct {
	XMLName          xml.Name `xml:"http://www.opengis.net/oseo/1.0 GetOptions"`
	Service          string   `xml:"service,attr"`
	CollectionID     string   `xml:"collectionId"`
	Identifier       string   `xml:"identifier"`
	TaskingRequestID string   `xml:"taskingRequestId"`
}

// GetOptionsResponse is the response to GetOptions.
type GetOptionsResponse struct {
	XMLName      xml.Name             `xml:"http://www.opengis.net/oseo/1.0 GetOptionsResponse"`
	Status       string               `xml:"status,attr"`
	OrderOptions []CommonOrderOptions `xml:"orderOptions"`
}

// CommonOrderOptions carries the options applicable to one order type of a
// collection.
type CommonOrderOptions struct {
	ProductOrderOptionsID  string                  `xml:"productOrderOptionsId"`
	Description            string                  `xml:"description,omitempty"`
	OrderType              string                  `xml:"orderType"`
	Option                 []OptionChoices         `xml:"option"`
	ProductDeliveryOptions *DeliveryOptionsChoices `xml:"productDeliveryOptions"`
}

// OptionChoices is one orderable option with its closed value set.
type OptionChoices struct {
	Name     string   `xml:"name"`
	DataType string   `xml:"dataType,omitempty"`
	Value    []string `xml:"value"`
}

// DeliveryOptionsChoices groups the configured delivery options by sub-kind.
type DeliveryOptionsChoices struct {
	OnlineDataAccess   []string        `xml:"onlineDataAccess>protocol"`
	OnlineDataDelivery []string        `xml:"onlineDataDelivery>protocol"`
	MediaDelivery      []MediaDelivery `xml:"mediaDelivery"`
}
