// Package action applies one device restriction (lock to app, unlock,
// restart, assign owner) to many devices at once.
//
// Each device is tried independently under a bounded worker pool and
// the outcomes are aggregated into a Result with success, failure, and
// exclusion counts. Lock and unlock exclude unowned devices before any
// call is attempted. Per-device errors are captured in the Result and
// never abort the rest of the batch; only a missing session token stops
// a batch before it starts.
package action
