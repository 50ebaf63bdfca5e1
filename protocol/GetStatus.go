package protocol

import "encoding/xml"

// Presentation values for GetStatus.
const (
	PresentationBrief = "brief"
	PresentationFull  = "full"
)

// GetStatus retrieves one order by id or searches the caller's orders.
type GetStatus struct {
	XMLName           xml.Name           `xml:"http://www.opengis.net/oseo/1.0 GetStatus"`
	Service           string             `xml:"service,attr"`
	OrderID           string             `xml:"orderId"`
	Presentation      string             `xml:"presentation"`
	FilteringCriteria *FilteringCriteria `xml:"filteringCriteria"`
}

// FilteringCriteria narrows a GetStatus search.
type FilteringCriteria struct {
	// LastUpdate keeps orders whose status changed on or after this instant.
	LastUpdate string `xml:"lastUpdate"`
	// LastUpdateEnd keeps orders whose status changed on or before this
	// instant. Accepts YYYY-MM-DDTHH:MM:SSZ or YYYY-MM-DD.
	LastUpdateEnd  string   `xml:"lastUpdateEnd"`
	OrderReference string   `xml:"orderReference"`
	OrderStatus    []string `xml:"orderStatus"`
}

// GetStatusResponse is the response to GetStatus.
type GetStatusResponse struct {
	XMLName                   xml.Name                          `xml:"http://www.opengis.net/oseo/1.0 GetStatusResponse"`
	Status                    string                            `xml:"status,attr"`
	OrderMonitorSpecification []CommonOrderMonitorSpecification `xml:"orderMonitorSpecification"`
}

// CommonOrderMonitorSpecification reports one order.
type CommonOrderMonitorSpecification struct {
	OrderID         string            `xml:"orderId"`
	OrderType       string            `xml:"orderType"`
	OrderReference  string            `xml:"orderReference,omitempty"`
	OrderStatusInfo StatusInfo        `xml:"orderStatusInfo"`
	OrderItem       []OrderItemStatus `xml:"orderItem"`
}

// OrderItemStatus reports one order item under full presentation.
type OrderItemStatus struct {
	ItemID          string           `xml:"itemId"`
	Identifier      string           `xml:"identifier,omitempty"`
	CollectionID    string           `xml:"collectionId,omitempty"`
	ItemStatusInfo  StatusInfo       `xml:"orderItemStatusInfo"`
	DeliveryOptions *DeliveryOptions `xml:"deliveryOptions"`
}
