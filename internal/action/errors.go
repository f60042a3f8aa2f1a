package action

import "errors"

// ErrNoSession indicates no directory session token is available, which
// means bootstrap has not completed. Batch operations cannot start
// without one; per-device failures never surface this way.
var ErrNoSession = errors.New("action: no session token available")
