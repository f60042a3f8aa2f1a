package action

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/slatedesk/slate-core/internal/directory"
)

// fakeGateway records issued calls and fails for configured UDIDs.
type fakeGateway struct {
	mu       sync.Mutex
	calls    []string // "<op>:<udid>"
	failUDID map[string]bool
}

func newFakeGateway(failUDIDs ...string) *fakeGateway {
	fail := make(map[string]bool, len(failUDIDs))
	for _, u := range failUDIDs {
		fail[u] = true
	}
	return &fakeGateway{failUDID: fail}
}

func (f *fakeGateway) record(op, udid string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op+":"+udid)
	f.mu.Unlock()
	if f.failUDID[udid] {
		return errors.New("remote call failed")
	}
	return nil
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGateway) LockDevice(ctx context.Context, udid, app string, token directory.SessionToken) error {
	return f.record("lock", udid)
}

func (f *fakeGateway) UnlockDevice(ctx context.Context, udid string, token directory.SessionToken) error {
	return f.record("unlock", udid)
}

func (f *fakeGateway) RestartDevice(ctx context.Context, udid string, token directory.SessionToken) error {
	return f.record("restart", udid)
}

func (f *fakeGateway) AssignOwner(ctx context.Context, udid string, ownerID int, token directory.SessionToken) error {
	return f.record("assign", udid)
}

// staticTokens always returns the same token.
type staticTokens struct{ token directory.SessionToken }

func (s staticTokens) Token() (directory.SessionToken, error) {
	if s.token == "" {
		return "", errors.New("not bootstrapped")
	}
	return s.token, nil
}

func ownedDevice(udid string) directory.Device {
	return directory.Device{
		UDID:  udid,
		Name:  "tablet-" + udid,
		Owner: &directory.Owner{ID: 7, Name: "Student"},
	}
}

func unownedDevice(udid string) directory.Device {
	return directory.Device{UDID: udid, Name: "tablet-" + udid}
}

func newTestExecutor(gw DeviceGateway) *Executor {
	return NewExecutor(gw, staticTokens{token: "tok"}, 4)
}

func TestLockToApp_FullSuccess(t *testing.T) {
	gw := newFakeGateway()
	ex := newTestExecutor(gw)

	devices := []directory.Device{ownedDevice("a"), ownedDevice("b"), ownedDevice("c")}
	result, err := ex.LockToApp(context.Background(), devices, "com.example.maths")
	if err != nil {
		t.Fatalf("LockToApp() error = %v", err)
	}

	if result.Success != 3 || result.Failed != 0 {
		t.Errorf("counts = (%d, %d), want (3, 0)", result.Success, result.Failed)
	}
	if !result.FullSuccess() {
		t.Error("FullSuccess() = false, want true")
	}
	if result.PartialSuccess() {
		t.Error("PartialSuccess() = true, want false")
	}
	if result.RunID == "" {
		t.Error("result carries no run id")
	}
}

// Three devices, device b made to fail: 2 succeed, 1 fails, and the
// result reports partial success rather than aborting the batch.
func TestLockToApp_PartialFailure(t *testing.T) {
	gw := newFakeGateway("b")
	ex := newTestExecutor(gw)

	devices := []directory.Device{ownedDevice("a"), ownedDevice("b"), ownedDevice("c")}
	result, err := ex.LockToApp(context.Background(), devices, "com.example.maths")
	if err != nil {
		t.Fatalf("LockToApp() error = %v", err)
	}

	if result.Success != 2 || result.Failed != 1 {
		t.Errorf("counts = (%d, %d), want (2, 1)", result.Success, result.Failed)
	}
	if !result.PartialSuccess() {
		t.Error("PartialSuccess() = false, want true")
	}
	if result.FullSuccess() {
		t.Error("FullSuccess() = true, want false")
	}
	if len(result.Failures) != 1 || result.Failures[0].UDID != "b" {
		t.Errorf("failures = %+v, want exactly device b", result.Failures)
	}

	// All three calls were attempted; the failure cancelled nothing
	if gw.callCount() != 3 {
		t.Errorf("gateway calls = %d, want 3", gw.callCount())
	}
}

// An unowned device is excluded before the call is attempted: exactly
// one call goes out, and the result reflects only the owned device.
func TestUnlock_OwnerExclusion(t *testing.T) {
	gw := newFakeGateway()
	ex := newTestExecutor(gw)

	devices := []directory.Device{ownedDevice("a"), unownedDevice("b")}
	result, err := ex.Unlock(context.Background(), devices)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	if gw.callCount() != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.callCount())
	}
	if result.Attempted() != 1 {
		t.Errorf("attempted = %d, want 1", result.Attempted())
	}
	if result.Excluded != 1 {
		t.Errorf("excluded = %d, want 1", result.Excluded)
	}
	if result.Failed != 0 {
		t.Errorf("excluded device counted as failure: failed = %d", result.Failed)
	}
}

// Restart has no owner precondition: every device is attempted.
func TestRestart_NoOwnerPrecondition(t *testing.T) {
	gw := newFakeGateway()
	ex := newTestExecutor(gw)

	devices := []directory.Device{ownedDevice("a"), unownedDevice("b")}
	result, err := ex.Restart(context.Background(), devices)
	if err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	if result.Success != 2 || result.Excluded != 0 {
		t.Errorf("counts = (success %d, excluded %d), want (2, 0)", result.Success, result.Excluded)
	}
}

func TestAssignOwner_NoOwnerPrecondition(t *testing.T) {
	gw := newFakeGateway()
	ex := newTestExecutor(gw)

	result, err := ex.AssignOwner(context.Background(), []directory.Device{unownedDevice("a")}, 42)
	if err != nil {
		t.Fatalf("AssignOwner() error = %v", err)
	}
	if result.Success != 1 {
		t.Errorf("success = %d, want 1 (assignment is how devices acquire owners)", result.Success)
	}
}

// The single-device wrappers produce the same Result shape as the
// batch primitives.
func TestSingleDeviceWrappers(t *testing.T) {
	gw := newFakeGateway()
	ex := newTestExecutor(gw)
	ctx := context.Background()

	result, err := ex.LockDevice(ctx, ownedDevice("a"), "com.example.maths")
	if err != nil {
		t.Fatalf("LockDevice() error = %v", err)
	}
	if !result.FullSuccess() || result.Attempted() != 1 {
		t.Errorf("single-device lock result = %+v", result)
	}

	result, err = ex.UnlockDevice(ctx, unownedDevice("b"))
	if err != nil {
		t.Fatalf("UnlockDevice() error = %v", err)
	}
	if result.Attempted() != 0 || result.Excluded != 1 {
		t.Errorf("single unowned unlock result = %+v", result)
	}
}

func TestRun_NoSessionToken(t *testing.T) {
	ex := NewExecutor(newFakeGateway(), staticTokens{}, 4)

	_, err := ex.LockToApp(context.Background(), []directory.Device{ownedDevice("a")}, "app")
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("error = %v, want ErrNoSession", err)
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	ex := newTestExecutor(newFakeGateway())

	result, err := ex.Restart(context.Background(), nil)
	if err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if result.FullSuccess() || result.PartialSuccess() {
		t.Error("empty batch should be neither full nor partial success")
	}
}

// cancellingGateway cancels the batch context from inside its first
// call, simulating a caller abandoning the request mid-batch.
type cancellingGateway struct {
	mu     sync.Mutex
	calls  int
	cancel context.CancelFunc
}

func (g *cancellingGateway) note() error {
	g.mu.Lock()
	g.calls++
	if g.calls == 1 {
		g.cancel()
	}
	g.mu.Unlock()
	return nil
}

func (g *cancellingGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *cancellingGateway) LockDevice(ctx context.Context, udid, app string, token directory.SessionToken) error {
	return g.note()
}

func (g *cancellingGateway) UnlockDevice(ctx context.Context, udid string, token directory.SessionToken) error {
	return g.note()
}

func (g *cancellingGateway) RestartDevice(ctx context.Context, udid string, token directory.SessionToken) error {
	return g.note()
}

func (g *cancellingGateway) AssignOwner(ctx context.Context, udid string, ownerID int, token directory.SessionToken) error {
	return g.note()
}

// Cancelling mid-batch keeps the outcomes already settled: the device
// whose call completed stays a success, and the devices never attempted
// appear in Failures carrying the context error. One worker makes the
// cut point deterministic.
func TestRun_CancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &cancellingGateway{cancel: cancel}
	ex := NewExecutor(gw, staticTokens{token: "tok"}, 1)

	devices := []directory.Device{ownedDevice("a"), ownedDevice("b"), ownedDevice("c")}
	result, err := ex.Restart(ctx, devices)
	if err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	if result.Success != 1 || result.Failed != 2 {
		t.Fatalf("counts = (%d, %d), want (1, 2)", result.Success, result.Failed)
	}
	if !result.PartialSuccess() {
		t.Error("PartialSuccess() = false, want true")
	}

	// Only the first device's call went out; b and c were cut off
	// before their gateway calls
	if gw.callCount() != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.callCount())
	}
	for _, f := range result.Failures {
		if f.UDID != "b" && f.UDID != "c" {
			t.Errorf("unexpected failed device %q", f.UDID)
		}
		if f.Error != context.Canceled.Error() {
			t.Errorf("failure error = %q, want %q", f.Error, context.Canceled.Error())
		}
	}
}

func TestRun_BroadcastsCompletion(t *testing.T) {
	gw := newFakeGateway()
	ex := newTestExecutor(gw)

	hub := &mockBroadcaster{}
	ex.SetBroadcaster(hub)

	if _, err := ex.Restart(context.Background(), []directory.Device{ownedDevice("a")}); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	var sawProgress, sawCompleted bool
	for _, ch := range hub.channels {
		switch ch {
		case "action.progress":
			sawProgress = true
		case "action.completed":
			sawCompleted = true
		}
	}
	if !sawProgress || !sawCompleted {
		t.Errorf("broadcast channels = %v, want progress and completed", hub.channels)
	}
}

func TestProcessingIdleAfterBatch(t *testing.T) {
	ex := newTestExecutor(newFakeGateway())

	if _, err := ex.Restart(context.Background(), []directory.Device{ownedDevice("a")}); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if ex.Processing() {
		t.Error("Processing() = true after batch settled")
	}
	if msg := ex.ProgressMessage(); msg != "" {
		t.Errorf("ProgressMessage() = %q after batch settled", msg)
	}
}

type mockBroadcaster struct {
	mu       sync.Mutex
	channels []string
}

func (m *mockBroadcaster) Broadcast(channel string, payload any) {
	m.mu.Lock()
	m.channels = append(m.channels, channel)
	m.mu.Unlock()
}
