package auth

import (
	"testing"

	"github.com/earthsight/oseo-server/soap"
)

func soapWithToken(t *testing.T, header string) *soap.Message {
	t.Helper()
	raw := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap:Header>` + header + `</soap:Header>` +
		`<soap:Body><GetStatus xmlns="http://www.opengis.net/oseo/1.0"/></soap:Body></soap:Envelope>`
	msg, err := soap.Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

const goodHeader = `<wsse:Security xmlns:wsse="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">` +
	`<wsse:UsernameToken><wsse:Username>alice</wsse:Username>` +
	`<wsse:Password Type="vendor">secret</wsse:Password></wsse:UsernameToken></wsse:Security>`

func TestUsernameTokenAuthenticate(t *testing.T) {
	a := &UsernameToken{}
	principal, err := a.Authenticate(soapWithToken(t, goodHeader))
	if err != nil {
		t.Fatal(err)
	}
	if principal.Username != "alice" {
		t.Errorf("expected alice, got %q", principal.Username)
	}
	if principal.Anonymous {
		t.Error("expected a named principal")
	}
}

func TestUsernameTokenVendorMode(t *testing.T) {
	a := &UsernameToken{TokenType: "vendor"}
	if _, err := a.Authenticate(soapWithToken(t, goodHeader)); err != nil {
		t.Errorf("matching token type should pass, got %v", err)
	}

	a = &UsernameToken{TokenType: "other"}
	if _, err := a.Authenticate(soapWithToken(t, goodHeader)); err != ErrAuthenticationFailed {
		t.Errorf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestUsernameTokenRejectsPlainRequests(t *testing.T) {
	a := &UsernameToken{}
	msg := &soap.Message{Version: soap.VersionNone, Payload: []byte("<x/>")}
	if _, err := a.Authenticate(msg); err != ErrNonSoapRequest {
		t.Errorf("expected ErrNonSoapRequest, got %v", err)
	}
}

func TestUsernameTokenMissingCredentials(t *testing.T) {
	a := &UsernameToken{}
	cases := []string{
		``,
		`<wsse:Security xmlns:wsse="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"><wsse:UsernameToken><wsse:Username>alice</wsse:Username></wsse:UsernameToken></wsse:Security>`,
	}
	for _, header := range cases {
		if _, err := a.Authenticate(soapWithToken(t, header)); err != ErrCredentialsMissing {
			t.Errorf("header %q: expected ErrCredentialsMissing, got %v", header, err)
		}
	}
}

func TestNoAuth(t *testing.T) {
	principal, err := NoAuth{}.Authenticate(&soap.Message{Version: soap.VersionNone})
	if err != nil {
		t.Fatal(err)
	}
	if principal.Username != AnonymousUser || !principal.Anonymous {
		t.Errorf("unexpected principal %+v", principal)
	}
}

func TestNewSelectsClass(t *testing.T) {
	if _, err := New("noauth", ""); err != nil {
		t.Error(err)
	}
	if _, err := New("usernametoken", "vendor"); err != nil {
		t.Error(err)
	}
	if _, err := New("kerberos", ""); err == nil {
		t.Error("expected an error for an unknown class")
	}
}
