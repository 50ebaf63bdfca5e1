// Package protocol holds the typed request and response values exchanged
// with OSEO 1.0 clients. Types here bind to XML and deliberately carry no
// database concerns; mapping converts between these and the models package.
package protocol

// XML namespaces used on the wire.
const (
	NamespaceOSEO = "http://www.opengis.net/oseo/1.0"
	NamespaceOWS  = "http://www.opengis.net/ows/2.0"
)

// Local names of the supported request elements.
const (
	OpGetCapabilities      = "GetCapabilities"
	OpGetOptions           = "GetOptions"
	OpSubmit               = "Submit"
	OpGetStatus            = "GetStatus"
	OpDescribeResultAccess = "DescribeResultAccess"
	OpCancel               = "Cancel"
)

// SupportedOperations lists the request local names this server handles.
var SupportedOperations = []string{
	OpGetCapabilities, OpGetOptions, OpSubmit, OpGetStatus,
	OpDescribeResultAccess, OpCancel,
}

// StatusSuccess is the status attribute value on successful responses.
const StatusSuccess = "success"
