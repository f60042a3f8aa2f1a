package provision

import "errors"

// Bootstrap error taxonomy. All are fatal to the bootstrap run and
// surfaced to the caller; none are silently retried. Re-running
// Bootstrap after any of these is safe because every creation step is
// check-then-create.
var (
	// ErrLocationsUnavailable indicates the location list could not be
	// fetched. Nothing else can proceed without it.
	ErrLocationsUnavailable = errors.New("provision: locations unavailable")

	// ErrClassCreation indicates no reserved class could be created or
	// found for any location.
	ErrClassCreation = errors.New("provision: class creation failed")

	// ErrDictionaryBuild indicates a whole-dictionary fetch or rebuild
	// failed mid-sequence.
	ErrDictionaryBuild = errors.New("provision: dictionary build failed")

	// ErrAuthentication indicates the teacher credential exchange failed.
	ErrAuthentication = errors.New("provision: authentication failed")

	// ErrNotBootstrapped is returned by callers that need a completed
	// index before bootstrap has run.
	ErrNotBootstrapped = errors.New("provision: not bootstrapped")
)
