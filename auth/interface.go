// Package auth validates caller credentials carried on incoming requests.
package auth

import (
	"fmt"

	"github.com/earthsight/oseo-server/soap"
)

// Error is our error type.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrNonSoapRequest is returned when credentials are required but the
	// request carries no SOAP envelope.
	ErrNonSoapRequest = Error("auth: request must be enveloped to carry credentials")
	// ErrCredentialsMissing is returned when the security header or its
	// username/password are absent.
	ErrCredentialsMissing = Error("auth: credentials missing from security header")
	// ErrAuthenticationFailed is returned when supplied credentials are
	// rejected.
	ErrAuthenticationFailed = Error("auth: authentication failed")
)

// Principal is the authenticated caller.
type Principal struct {
	Username  string
	Anonymous bool
}

// Authenticator validates the credentials on a decoded request.
type Authenticator interface {
	Authenticate(msg *soap.Message) (Principal, error)
}

// Authenticator class names accepted in configuration.
const (
	ClassNoAuth        = "noauth"
	ClassUsernameToken = "usernametoken"
)

// New constructs the authenticator selected by class name.
func New(class, vendorTokenType string) (Authenticator, error) {
	switch class {
	case ClassNoAuth, "":
		return NoAuth{}, nil
	case ClassUsernameToken:
		return &UsernameToken{TokenType: vendorTokenType}, nil
	}
	return nil, fmt.Errorf("auth: unknown authentication class %q", class)
}
