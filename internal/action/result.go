package action

// Action names used in results, audit entries, and progress events.
const (
	ActionLock        = "lock"
	ActionUnlock      = "unlock"
	ActionRestart     = "restart"
	ActionAssignOwner = "assign_owner"
)

// DeviceFailure records one device whose remote call failed.
type DeviceFailure struct {
	UDID  string `json:"udid"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// Result aggregates the per-device outcomes of one batch operation.
//
// Devices excluded before the call was attempted (no owner on a
// lock/unlock) count toward Excluded, never toward FailCount. The
// single-device convenience wrappers produce the same shape, so callers
// treat single- and multi-device flows uniformly.
type Result struct {
	RunID      string          `json:"run_id"`
	Action     string          `json:"action"`
	Success    int             `json:"success_count"`
	Failed     int             `json:"fail_count"`
	Excluded   int             `json:"excluded_count"`
	Failures   []DeviceFailure `json:"failures,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// FullSuccess reports whether every attempted call succeeded and at
// least one call was attempted.
func (r Result) FullSuccess() bool {
	return r.Failed == 0 && r.Success > 0
}

// PartialSuccess reports whether the batch mixed successes and failures.
func (r Result) PartialSuccess() bool {
	return r.Success > 0 && r.Failed > 0
}

// Attempted returns the number of devices a call was issued for.
func (r Result) Attempted() int {
	return r.Success + r.Failed
}
