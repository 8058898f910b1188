package tenant

import "errors"

var (
	// ErrAlreadyExists is returned by Create when the tenant's database file
	// is already present and force was not requested.
	ErrAlreadyExists = errors.New("tenant database already exists")

	// ErrProvisioningFailed wraps any failure during the create-file,
	// apply-schema sequence.  The partial file has been removed by the time
	// callers see this error.
	ErrProvisioningFailed = errors.New("tenant database provisioning failed")

	// ErrNotFound is returned when an operation requires an existing
	// database file and none is present.
	ErrNotFound = errors.New("tenant database not found")

	// ErrClosed is returned by Acquire after the registry has been shut
	// down.
	ErrClosed = errors.New("tenant registry closed")
)
