// Package directory provides the REST client for the remote MDM/directory
// service that owns locations, classes, users, groups, and managed tablets.
//
// The client is consumed by the provisioning orchestrator (directory CRUD
// plus authentication) and by the batch action executor (privileged device
// calls). Consumers declare their own narrow interfaces; this package
// supplies the single concrete implementation.
//
// # Authentication
//
// Two credential paths exist:
//   - Tenant API key (network id + key, HTTP basic): listing and creating
//     directory objects during bootstrap.
//   - Bearer session token (from Authenticate): device restriction calls.
//     The token is acquired once per bootstrap run and never auto-refreshed;
//     callers re-run bootstrap on ErrUnauthorized.
//
// # Error Handling
//
// All methods return wrapped sentinel errors (ErrRequestFailed,
// ErrUnauthorized, ErrNotFound, ErrBadResponse) checkable via errors.Is.
package directory
