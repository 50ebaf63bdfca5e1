package protocol

import "encoding/xml"

// GetCapabilities requests the static capabilities document.
type GetCapabilities struct {
	XMLName        xml.Name `xml:"http://www.opengis.net/oseo/1.0 GetCapabilities"`
	Service        string   `xml:"service,attr"`
	UpdateSequence string   `xml:"updateSequence,attr,omitempty"`
}

// Capabilities is the response to GetCapabilities.
type Capabilities struct {
	XMLName               xml.Name               `xml:"http://www.opengis.net/oseo/1.0 Capabilities"`
	Version               string                 `xml:"version,attr"`
	UpdateSequence        string                 `xml:"updateSequence,attr,omitempty"`
	ServiceIdentification *ServiceIdentification `xml:"ServiceIdentification"`
	OperationsMetadata    *OperationsMetadata    `xml:"OperationsMetadata"`
	Contents              *CapabilitiesContents  `xml:"Contents"`
}

// ServiceIdentification describes the service.
type ServiceIdentification struct {
	Title              string `xml:"Title"`
	Abstract           string `xml:"Abstract,omitempty"`
	ServiceType        string `xml:"ServiceType"`
	ServiceTypeVersion string `xml:"ServiceTypeVersion"`
}

// OperationsMetadata lists the operations the server implements.
type OperationsMetadata struct {
	Operation []Operation `xml:"Operation"`
}

// Operation names a supported operation.
type Operation struct {
	Name string `xml:"name,attr"`
}

// CapabilitiesContents advertises the configured order types and delivery
// protocols.
type CapabilitiesContents struct {
	SupportedOrderType []string `xml:"supportedOrderType"`
	DeliveryProtocol   []string `xml:"deliveryProtocol"`
}
