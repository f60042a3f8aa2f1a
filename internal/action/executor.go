package action

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/slatedesk/slate-core/internal/directory"
)

// DeviceGateway is the subset of the directory client the executor
// issues restriction calls through.
type DeviceGateway interface {
	LockDevice(ctx context.Context, udid, app string, token directory.SessionToken) error
	UnlockDevice(ctx context.Context, udid string, token directory.SessionToken) error
	RestartDevice(ctx context.Context, udid string, token directory.SessionToken) error
	AssignOwner(ctx context.Context, udid string, ownerID int, token directory.SessionToken) error
}

// TokenSource provides the session token acquired during bootstrap.
// *provision.Index satisfies this.
type TokenSource interface {
	Token() (directory.SessionToken, error)
}

// Logger defines the logging interface used by the Executor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broadcaster emits batch progress and completion events.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Metrics receives per-batch measurements (may be a no-op).
type Metrics interface {
	RecordAction(action string, success, failed int, duration time.Duration)
}

// Recorder persists an audit trail entry for a completed batch.
type Recorder interface {
	RecordAction(ctx context.Context, result Result)
}

// Executor fans one device action out over a set of devices
// concurrently and aggregates a partial-success Result.
//
// Every device is tried independently; one failure never cancels the
// others, and the Result is only returned once every per-device call
// has settled. Fan-out is bounded by the configured worker count so a
// large class cannot overwhelm the remote service.
//
// Thread Safety: safe for concurrent use. Processing and
// ProgressMessage expose coarse state for a caller that wants to show
// a blocking-but-informative UI; they are presentation hints only.
type Executor struct {
	gateway DeviceGateway
	tokens  TokenSource
	workers int

	logger   Logger
	hub      Broadcaster
	metrics  Metrics
	recorder Recorder

	processing atomic.Bool
	progressMu sync.RWMutex
	progress   string
}

// NewExecutor creates a batch executor with the given fan-out bound.
// A workers value below 1 is clamped to 1.
func NewExecutor(gateway DeviceGateway, tokens TokenSource, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		gateway: gateway,
		tokens:  tokens,
		workers: workers,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the executor.
func (e *Executor) SetLogger(logger Logger) {
	e.logger = logger
}

// SetBroadcaster sets the event broadcaster (may be nil).
func (e *Executor) SetBroadcaster(hub Broadcaster) {
	e.hub = hub
}

// SetMetrics sets the metrics recorder (may be nil).
func (e *Executor) SetMetrics(m Metrics) {
	e.metrics = m
}

// SetRecorder sets the audit recorder (may be nil).
func (e *Executor) SetRecorder(r Recorder) {
	e.recorder = r
}

// Processing reports whether a batch is currently in flight.
func (e *Executor) Processing() bool {
	return e.processing.Load()
}

// ProgressMessage returns a human-readable description of the batch in
// flight, or an empty string when idle.
func (e *Executor) ProgressMessage() string {
	e.progressMu.RLock()
	defer e.progressMu.RUnlock()
	return e.progress
}

// LockToApp restricts each owned device to the given app. Devices with
// no owner are excluded before any call is attempted; they count toward
// Result.Excluded, not Result.Failed.
func (e *Executor) LockToApp(ctx context.Context, devices []directory.Device, app string) (Result, error) {
	return e.run(ctx, ActionLock, devices, true,
		fmt.Sprintf("Locking %d devices to %s", len(devices), app),
		func(ctx context.Context, d directory.Device, token directory.SessionToken) error {
			return e.gateway.LockDevice(ctx, d.UDID, app, token)
		})
}

// Unlock removes restriction state from each owned device, with the
// same owner-exclusion rule as LockToApp.
func (e *Executor) Unlock(ctx context.Context, devices []directory.Device) (Result, error) {
	return e.run(ctx, ActionUnlock, devices, true,
		fmt.Sprintf("Unlocking %d devices", len(devices)),
		func(ctx context.Context, d directory.Device, token directory.SessionToken) error {
			return e.gateway.UnlockDevice(ctx, d.UDID, token)
		})
}

// Restart restarts every device in the set. No owner precondition.
func (e *Executor) Restart(ctx context.Context, devices []directory.Device) (Result, error) {
	return e.run(ctx, ActionRestart, devices, false,
		fmt.Sprintf("Restarting %d devices", len(devices)),
		func(ctx context.Context, d directory.Device, token directory.SessionToken) error {
			return e.gateway.RestartDevice(ctx, d.UDID, token)
		})
}

// AssignOwner assigns the student as owner of every device in the set.
// No owner precondition: this is how a device acquires an owner in the
// first place.
func (e *Executor) AssignOwner(ctx context.Context, devices []directory.Device, studentID int) (Result, error) {
	return e.run(ctx, ActionAssignOwner, devices, false,
		fmt.Sprintf("Assigning %d devices", len(devices)),
		func(ctx context.Context, d directory.Device, token directory.SessionToken) error {
			return e.gateway.AssignOwner(ctx, d.UDID, studentID, token)
		})
}

// LockDevice is the single-device form of LockToApp.
func (e *Executor) LockDevice(ctx context.Context, device directory.Device, app string) (Result, error) {
	return e.LockToApp(ctx, []directory.Device{device}, app)
}

// UnlockDevice is the single-device form of Unlock.
func (e *Executor) UnlockDevice(ctx context.Context, device directory.Device) (Result, error) {
	return e.Unlock(ctx, []directory.Device{device})
}

// RestartDevice is the single-device form of Restart.
func (e *Executor) RestartDevice(ctx context.Context, device directory.Device) (Result, error) {
	return e.Restart(ctx, []directory.Device{device})
}

// AssignDeviceOwner is the single-device form of AssignOwner.
func (e *Executor) AssignDeviceOwner(ctx context.Context, device directory.Device, studentID int) (Result, error) {
	return e.AssignOwner(ctx, []directory.Device{device}, studentID)
}

type deviceCall func(ctx context.Context, d directory.Device, token directory.SessionToken) error

// run is the shared fan-out primitive behind all four operations.
//
// Cancellation preserves partial results: devices whose calls completed
// before the context was cancelled keep their outcomes, devices not yet
// attempted are recorded as failures with the context error.
func (e *Executor) run(ctx context.Context, action string, devices []directory.Device, requireOwner bool, progress string, call deviceCall) (Result, error) {
	token, err := e.tokens.Token()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	result := Result{
		RunID:  uuid.New().String(),
		Action: action,
	}

	var eligible []directory.Device
	for _, d := range devices {
		if requireOwner && !d.HasOwner() {
			result.Excluded++
			continue
		}
		eligible = append(eligible, d)
	}

	e.processing.Store(true)
	e.setProgress(progress)
	defer func() {
		e.processing.Store(false)
		e.setProgress("")
	}()

	started := time.Now()

	var (
		mu       sync.Mutex
		success  int
		failures []DeviceFailure
	)

	g := new(errgroup.Group)
	g.SetLimit(e.workers)

	for _, d := range eligible {
		d := d
		g.Go(func() error {
			var callErr error
			if ctx.Err() != nil {
				callErr = ctx.Err()
			} else {
				callErr = call(ctx, d, token)
			}

			mu.Lock()
			if callErr != nil {
				failures = append(failures, DeviceFailure{
					UDID:  d.UDID,
					Name:  d.Name,
					Error: callErr.Error(),
				})
			} else {
				success++
			}
			mu.Unlock()

			if e.hub != nil {
				e.hub.Broadcast("action.progress", map[string]any{
					"run_id": result.RunID,
					"action": action,
					"udid":   d.UDID,
					"ok":     callErr == nil,
				})
			}
			return nil
		})
	}

	// Wait for all, collect all: never cancel-on-first-failure.
	_ = g.Wait()

	result.Success = success
	result.Failed = len(failures)
	result.Failures = failures
	result.DurationMS = time.Since(started).Milliseconds()

	e.logger.Info("batch action complete",
		"run_id", result.RunID,
		"action", action,
		"success", result.Success,
		"failed", result.Failed,
		"excluded", result.Excluded,
		"duration_ms", result.DurationMS,
	)

	if e.metrics != nil {
		e.metrics.RecordAction(action, result.Success, result.Failed, time.Since(started))
	}
	if e.recorder != nil {
		e.recorder.RecordAction(ctx, result)
	}
	if e.hub != nil {
		e.hub.Broadcast("action.completed", result)
	}

	return result, nil
}

func (e *Executor) setProgress(msg string) {
	e.progressMu.Lock()
	e.progress = msg
	e.progressMu.Unlock()
}
