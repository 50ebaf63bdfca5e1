package auth

import "github.com/earthsight/oseo-server/soap"

// AnonymousUser is the principal assigned by NoAuth.
const AnonymousUser = "anonymous"

// NoAuth accepts every request as the anonymous user.
type NoAuth struct{}

// Authenticate implements the Authenticator interface.
func (NoAuth) Authenticate(msg *soap.Message) (Principal, error) {
	return Principal{Username: AnonymousUser, Anonymous: true}, nil
}
