package protocol

import (
	"encoding/xml"
	"fmt"
)

// OWS exception codes surfaced to clients.
const (
	ExceptionNoApplicableCode       = "NoApplicableCode"
	ExceptionInvalidRequest         = "InvalidRequest"
	ExceptionOperationNotSupported  = "OperationNotSupported"
	ExceptionInvalidOrderIdentifier = "InvalidOrderIdentifier"
	ExceptionAuthorizationFailed    = "AuthorizationFailed"
	ExceptionAuthenticationFailed   = "AuthenticationFailed"
	ExceptionUnsupportedCollection  = "UnsupportedCollection"
	ExceptionInvalidOrderOptionsID  = "InvalidOrderOptionsId"
	ExceptionInvalidParameterValue  = "InvalidParameterValue"
	ExceptionNotImplemented         = "NotImplemented"
)

// OseoError is the error branch of request processing: an exception code,
// human readable text and an optional locator. ServerFault selects the SOAP
// fault role when the response is enveloped.
type OseoError struct {
	Code        string
	Text        string
	Locator     string
	ServerFault bool
	// Cause retains the underlying error for logging. Never serialised.
	Cause error
}

// Error satisfies the error interface.
func (e *OseoError) Error() string {
	if e.Locator != "" {
		return fmt.Sprintf("%s (locator %s): %s", e.Code, e.Locator, e.Text)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Text)
}

// NewClientError builds an OseoError attributed to the caller.
func NewClientError(code, text, locator string) *OseoError {
	return &OseoError{Code: code, Text: text, Locator: locator}
}

// NewServerError builds an OseoError attributed to the server.
func NewServerError(code, text string, cause error) *OseoError {
	return &OseoError{Code: code, Text: text, ServerFault: true, Cause: cause}
}

// Report renders the error as an OWS exception report.
func (e *OseoError) Report() ExceptionReport {
	return ExceptionReport{
		Version: "2.0",
		Exception: []Exception{{
			ExceptionCode: e.Code,
			Locator:       e.Locator,
			ExceptionText: []string{e.Text},
		}},
	}
}

// ExceptionReport is the OWS 2.0 exception document.
type ExceptionReport struct {
	XMLName   xml.Name    `xml:"http://www.opengis.net/ows/2.0 ExceptionReport"`
	Version   string      `xml:"version,attr"`
	Exception []Exception `xml:"Exception"`
}

// Exception is one entry of an exception report.
type Exception struct {
	ExceptionCode string   `xml:"exceptionCode,attr"`
	Locator       string   `xml:"locator,attr,omitempty"`
	ExceptionText []string `xml:"ExceptionText"`
}
