// Package provision materialises the directory objects each school
// location needs before any scheduling action can run: a reserved
// class, a reserved teacher account, a reserved teacher group, and the
// membership linkage between them.
//
// The Orchestrator runs an eight-stage bootstrap in strict sequence,
// re-querying the directory after every creation pass instead of
// trusting create responses. Each creation is check-then-create, so
// bootstrap is idempotent: a second run against a fully provisioned
// directory creates nothing. Per-location failures are logged and
// skipped; whole-dictionary failures abort the run.
//
// The resulting Index maps location ids to the four identifiers the
// schedule and action layers need, plus the session token obtained by
// exchanging the teacher credentials. The Index is written only by the
// Orchestrator and read by everyone else.
package provision
