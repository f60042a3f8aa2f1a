package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockRepository is an in-memory Repository that counts writes, so tests
// can assert that no-op edits never touch the store.
type mockRepository struct {
	profiles    map[int]*Profile
	upsertCount int
	upsertErr   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{profiles: make(map[int]*Profile)}
}

func (m *mockRepository) FetchAll(ctx context.Context) ([]Profile, error) {
	out := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, *p.Clone())
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, studentID int) (*Profile, error) {
	return m.profiles[studentID].Clone(), nil
}

func (m *mockRepository) Upsert(ctx context.Context, profile *Profile) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upsertCount++
	m.profiles[profile.StudentID] = profile.Clone()
	return nil
}

// mockBroadcaster records broadcast events.
type mockBroadcaster struct {
	events []string
}

func (m *mockBroadcaster) Broadcast(channel string, payload any) {
	m.events = append(m.events, channel)
}

func newTestPlanner(repo Repository) *Planner {
	return NewPlanner(repo, DefaultSettings())
}

func TestSession_NoProfile(t *testing.T) {
	p := newTestPlanner(newMockRepository())

	if got := p.Session(42, "Mon", TimeslotAM); got != nil {
		t.Errorf("Session() for unknown student = %+v, want nil", got)
	}
}

func TestSession_BlockedSlot(t *testing.T) {
	repo := newMockRepository()
	p := newTestPlanner(repo)

	sess := Session{Apps: []string{"com.example.maths"}, DurationMinutes: 30}
	if err := p.UpdateSession(context.Background(), 42, 1, "Mon", TimeslotAM, sess); err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}

	if got := p.Session(42, "Mon", TimeslotBlocked); got != nil {
		t.Errorf("Session() for blocked slot = %+v, want nil", got)
	}
}

func TestSession_MissingDay(t *testing.T) {
	repo := newMockRepository()
	p := newTestPlanner(repo)

	sess := Session{Apps: []string{"com.example.maths"}}
	if err := p.UpdateSession(context.Background(), 42, 1, "Mon", TimeslotAM, sess); err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}

	if got := p.Session(42, "Tue", TimeslotAM); got != nil {
		t.Errorf("Session() for unscheduled day = %+v, want nil", got)
	}
}

// A student's Monday schedule must never leak into another day, and an
// edit to one timeslot must never disturb the other two.
func TestUpdateSession_SlotIsolation(t *testing.T) {
	repo := newMockRepository()
	p := newTestPlanner(repo)
	ctx := context.Background()

	am := Session{Apps: []string{"com.example.maths"}, DurationMinutes: 45}
	pm := Session{Apps: []string{"com.example.reader"}, DurationMinutes: 30, SingleAppLock: true}

	if err := p.UpdateSession(ctx, 42, 1, "Mon", TimeslotAM, am); err != nil {
		t.Fatalf("UpdateSession(am) error = %v", err)
	}
	if err := p.UpdateSession(ctx, 42, 1, "Mon", TimeslotPM, pm); err != nil {
		t.Fatalf("UpdateSession(pm) error = %v", err)
	}

	if got := p.Session(42, "Mon", TimeslotAM); got == nil || !got.Equal(am) {
		t.Errorf("am session disturbed by pm edit: got %+v", got)
	}
	if got := p.Session(42, "Mon", TimeslotPM); got == nil || !got.Equal(pm) {
		t.Errorf("pm session not stored: got %+v", got)
	}
	if got := p.Session(42, "Mon", TimeslotHome); got != nil && !got.IsZero() {
		t.Errorf("home session should be untouched, got %+v", got)
	}
	if got := p.Session(42, "Tue", TimeslotAM); got != nil {
		t.Errorf("Monday edit leaked into Tuesday: got %+v", got)
	}
}

func TestUpdateSession_ImplicitProfileCreation(t *testing.T) {
	repo := newMockRepository()
	p := newTestPlanner(repo)

	sess := Session{Apps: []string{"com.example.art"}}
	if err := p.UpdateSession(context.Background(), 99, 3, "Fri", TimeslotHome, sess); err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}

	stored, ok := repo.profiles[99]
	if !ok {
		t.Fatal("first edit did not create a profile")
	}
	if stored.LocationID != 3 {
		t.Errorf("LocationID = %d, want 3", stored.LocationID)
	}
}

func TestUpdateSession_Validation(t *testing.T) {
	p := newTestPlanner(newMockRepository())
	ctx := context.Background()

	if err := p.UpdateSession(ctx, 1, 1, "Funday", TimeslotAM, Session{}); !errors.Is(err, ErrInvalidDay) {
		t.Errorf("invalid day: error = %v, want ErrInvalidDay", err)
	}
	if err := p.UpdateSession(ctx, 1, 1, "Mon", TimeslotBlocked, Session{}); !errors.Is(err, ErrInvalidTimeslot) {
		t.Errorf("blocked slot: error = %v, want ErrInvalidTimeslot", err)
	}
	if err := p.UpdateSession(ctx, 1, 1, "Mon", TimeslotAM, Session{DurationMinutes: -5}); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("negative duration: error = %v, want ErrInvalidDuration", err)
	}
}

func TestUpdateSession_RepositoryError(t *testing.T) {
	repo := newMockRepository()
	repo.upsertErr = ErrStoreUnavailable
	p := newTestPlanner(repo)

	err := p.UpdateSession(context.Background(), 1, 1, "Mon", TimeslotAM, Session{Apps: []string{"a"}})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("error = %v, want ErrStoreUnavailable", err)
	}

	// Failed writes must not poison the cache
	if got := p.Session(1, "Mon", TimeslotAM); got != nil {
		t.Errorf("cache updated despite failed write: got %+v", got)
	}
}

func TestSaveDayIfChanged_NoChange(t *testing.T) {
	repo := newMockRepository()
	p := newTestPlanner(repo)
	ctx := context.Background()

	baseline := DaySessions{AM: Session{Apps: []string{"a"}, DurationMinutes: 10}}
	edited := baseline.Clone()

	wrote, err := p.SaveDayIfChanged(ctx, 42, 1, "Wed", edited, baseline)
	if err != nil {
		t.Fatalf("SaveDayIfChanged() error = %v", err)
	}
	if wrote {
		t.Error("unchanged day reported as written")
	}
	if repo.upsertCount != 0 {
		t.Errorf("unchanged day caused %d store writes, want 0", repo.upsertCount)
	}
}

func TestSaveDayIfChanged_Changed(t *testing.T) {
	repo := newMockRepository()
	p := newTestPlanner(repo)
	hub := &mockBroadcaster{}
	p.SetBroadcaster(hub)
	ctx := context.Background()

	baseline := DaySessions{AM: Session{Apps: []string{"a"}}}
	edited := baseline.Clone()
	edited.PM = Session{Apps: []string{"b"}, DurationMinutes: 20}

	wrote, err := p.SaveDayIfChanged(ctx, 42, 1, "Wed", edited, baseline)
	if err != nil {
		t.Fatalf("SaveDayIfChanged() error = %v", err)
	}
	if !wrote {
		t.Error("changed day not written")
	}
	if repo.upsertCount != 1 {
		t.Errorf("upsert count = %d, want 1", repo.upsertCount)
	}
	if len(hub.events) != 1 || hub.events[0] != "schedule.updated" {
		t.Errorf("broadcast events = %v, want [schedule.updated]", hub.events)
	}

	if got := p.Session(42, "Wed", TimeslotPM); got == nil || !got.Equal(edited.PM) {
		t.Errorf("saved pm session not readable: got %+v", got)
	}
}

func TestRefreshCache(t *testing.T) {
	repo := newMockRepository()
	repo.profiles[7] = &Profile{
		StudentID: 7,
		Sessions: map[string]DaySessions{
			"Thu": {Home: Session{Apps: []string{"com.example.reader"}}},
		},
	}

	p := newTestPlanner(repo)
	if err := p.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	if got := p.Session(7, "Thu", TimeslotHome); got == nil || got.Apps[0] != "com.example.reader" {
		t.Errorf("cached session = %+v, want reader app", got)
	}
}

// Resolving and looking up together: a schedule set for Monday morning
// is returned at 9am Monday and absent at 9am Tuesday.
func TestSessionAt_EndToEnd(t *testing.T) {
	repo := newMockRepository()
	p := newTestPlanner(repo)
	ctx := context.Background()

	sess := Session{Apps: []string{"com.example.maths"}, DurationMinutes: 45}
	if err := p.UpdateSession(ctx, 42, 1, "Mon", TimeslotAM, sess); err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}

	// 2026-03-02 and 2026-03-03 are Monday and Tuesday.
	monday := timeAt(2026, 3, 2, 9)
	tuesday := timeAt(2026, 3, 3, 9)

	got, slot := p.SessionAt(42, monday)
	if slot != TimeslotAM {
		t.Errorf("slot at 9am = %q, want am", slot)
	}
	if got == nil || !got.Equal(sess) {
		t.Errorf("SessionAt(monday) = %+v, want %+v", got, sess)
	}

	if got, _ := p.SessionAt(42, tuesday); got != nil {
		t.Errorf("SessionAt(tuesday) = %+v, want nil", got)
	}
}

func timeAt(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func TestSession_CrossStudentIsolation(t *testing.T) {
	repo := newMockRepository()
	p := newTestPlanner(repo)
	ctx := context.Background()

	if err := p.UpdateSession(ctx, 1, 1, "Mon", TimeslotAM, Session{Apps: []string{"a"}}); err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}

	if got := p.Session(2, "Mon", TimeslotAM); got != nil {
		t.Errorf("student 1's schedule visible to student 2: %+v", got)
	}
}
