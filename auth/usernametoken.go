package auth

import (
	"encoding/xml"
	"fmt"

	"github.com/earthsight/oseo-server/soap"
)

// NamespaceWSSE is the OASIS web services security extension namespace.
const NamespaceWSSE = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"

// UsernameToken authenticates callers from the WSSE UsernameToken carried in
// the SOAP header. When TokenType is set, the Password element must
// additionally carry a matching Type attribute (vendor token mode).
type UsernameToken struct {
	TokenType string
}

type securityHeader struct {
	Security struct {
		UsernameToken struct {
			Username string `xml:"Username"`
			Password struct {
				Value string `xml:",chardata"`
				Type  string `xml:"Type,attr"`
			} `xml:"Password"`
		} `xml:"UsernameToken"`
	} `xml:"Security"`
}

// Authenticate implements the Authenticator interface.
func (a *UsernameToken) Authenticate(msg *soap.Message) (Principal, error) {
	if msg.Version == soap.VersionNone {
		return Principal{}, ErrNonSoapRequest
	}
	if len(msg.Header) == 0 {
		return Principal{}, ErrCredentialsMissing
	}

	// The header inner xml may rely on prefixes declared on the envelope
	// element, so known prefixes are redeclared on the wrapper.
	wrapped := fmt.Sprintf(`<h xmlns:wsse=%q xmlns:wsu=%q>%s</h>`,
		NamespaceWSSE,
		"http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd",
		msg.Header)

	var header securityHeader
	if err := xml.Unmarshal([]byte(wrapped), &header); err != nil {
		return Principal{}, ErrCredentialsMissing
	}

	token := header.Security.UsernameToken
	if token.Username == "" || token.Password.Value == "" {
		return Principal{}, ErrCredentialsMissing
	}
	if a.TokenType != "" && token.Password.Type != a.TokenType {
		return Principal{}, ErrAuthenticationFailed
	}
	return Principal{Username: token.Username}, nil
}
