package provision

import (
	"sync"
	"time"

	"github.com/slatedesk/slate-core/internal/directory"
)

// Index holds the per-location directory identifiers materialised by
// bootstrap, plus the process-wide session token.
//
// Every location that has at least one user must eventually carry all
// four entries; absence before bootstrap completes is expected, absence
// after is an error.
//
// Thread Safety: single-writer, many-readers. Only the Orchestrator in
// this package writes (the setters are unexported); all read accessors
// are safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	classGroupID   map[int]int    // locationID -> reserved class group id
	classUUID      map[int]string // locationID -> reserved class UUID
	teacherGroupID map[int]int    // locationID -> reserved teacher group id
	teacherUserID  map[int]int    // locationID -> reserved teacher user id

	token         directory.SessionToken
	tokenAcquired time.Time

	now func() time.Time // injectable clock for tests
}

// NewIndex creates an empty directory index.
func NewIndex() *Index {
	return &Index{
		classGroupID:   make(map[int]int),
		classUUID:      make(map[int]string),
		teacherGroupID: make(map[int]int),
		teacherUserID:  make(map[int]int),
		now:            time.Now,
	}
}

// ClassGroupID returns the reserved class group id for a location.
func (x *Index) ClassGroupID(locationID int) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.classGroupID[locationID]
	return id, ok
}

// ClassUUID returns the reserved class UUID for a location.
func (x *Index) ClassUUID(locationID int) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	uuid, ok := x.classUUID[locationID]
	return uuid, ok
}

// TeacherGroupID returns the reserved teacher group id for a location.
func (x *Index) TeacherGroupID(locationID int) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.teacherGroupID[locationID]
	return id, ok
}

// TeacherUserID returns the reserved teacher user id for a location.
func (x *Index) TeacherUserID(locationID int) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.teacherUserID[locationID]
	return id, ok
}

// Complete reports whether a location carries all four identifiers.
func (x *Index) Complete(locationID int) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, a := x.classGroupID[locationID]
	_, b := x.classUUID[locationID]
	_, c := x.teacherGroupID[locationID]
	_, d := x.teacherUserID[locationID]
	return a && b && c && d
}

// Token returns the session token acquired during bootstrap, or
// ErrNotBootstrapped when no token is held. There is no automatic
// refresh; the token lives until the process restarts or bootstrap
// runs again. Use TokenAge to decide when a re-run is due.
func (x *Index) Token() (directory.SessionToken, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.token == "" {
		return "", ErrNotBootstrapped
	}
	return x.token, nil
}

// TokenAge returns how long ago the session token was acquired.
// The second return is false when no token is held.
func (x *Index) TokenAge() (time.Duration, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.token == "" {
		return 0, false
	}
	return x.now().Sub(x.tokenAcquired), true
}

// Bootstrapped reports whether a bootstrap run has completed through
// the credential exchange.
func (x *Index) Bootstrapped() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.token != ""
}

// Snapshot returns a copy of all four maps for read-only presentation.
func (x *Index) Snapshot() (classGroup map[int]int, classUUID map[int]string, teacherGroup, teacherUser map[int]int) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return copyIntMap(x.classGroupID), copyStringMap(x.classUUID), copyIntMap(x.teacherGroupID), copyIntMap(x.teacherUserID)
}

func (x *Index) setClasses(groupIDs map[int]int, uuids map[int]string) {
	x.mu.Lock()
	x.classGroupID = groupIDs
	x.classUUID = uuids
	x.mu.Unlock()
}

func (x *Index) setTeacherUsers(userIDs map[int]int) {
	x.mu.Lock()
	x.teacherUserID = userIDs
	x.mu.Unlock()
}

func (x *Index) setTeacherGroups(groupIDs map[int]int) {
	x.mu.Lock()
	x.teacherGroupID = groupIDs
	x.mu.Unlock()
}

func (x *Index) setToken(token directory.SessionToken) {
	x.mu.Lock()
	x.token = token
	x.tokenAcquired = x.now()
	x.mu.Unlock()
}

func copyIntMap(src map[int]int) map[int]int {
	dst := make(map[int]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyStringMap(src map[int]string) map[int]string {
	dst := make(map[int]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
