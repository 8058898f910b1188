// internal/apikey/errors.go
//
// Authorization failure taxonomy.  Every denial reason is a distinct
// sentinel so the HTTP layer can map each to the correct status code and
// the metrics layer can label outcomes.  None of these are retried by the
// core.
package apikey

import "errors"

var (
	ErrKeyNotFound      = errors.New("api key not found")
	ErrKeyExpired       = errors.New("api key expired")
	ErrKeyRevoked       = errors.New("api key revoked")
	ErrKeyInactive      = errors.New("api key inactive")
	ErrTenantInactive   = errors.New("website is not active")
	ErrDomainNotAllowed = errors.New("request domain not allowed")
	ErrIPNotAllowed     = errors.New("request ip not allowed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTypeNotAllowed   = errors.New("webbloc type not allowed")
	ErrBadSignature     = errors.New("request signature invalid")
)
