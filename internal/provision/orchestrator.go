package provision

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slatedesk/slate-core/internal/directory"
	"github.com/slatedesk/slate-core/internal/infrastructure/config"
)

// DirectoryAPI is the subset of the directory client bootstrap needs.
type DirectoryAPI interface {
	ListLocations(ctx context.Context) ([]directory.Location, error)
	ListClasses(ctx context.Context, locationID int) ([]directory.SchoolClass, error)
	CreateClass(ctx context.Context, name string, locationID int) (directory.SchoolClass, error)
	ListUsers(ctx context.Context) ([]directory.User, error)
	GetUser(ctx context.Context, id int) (directory.User, error)
	CreateUser(ctx context.Context, user directory.User) (int, error)
	UpdateUser(ctx context.Context, user directory.User) error
	ListGroups(ctx context.Context) ([]directory.UserGroup, error)
	CreateGroup(ctx context.Context, group directory.UserGroup) (int, error)
	Authenticate(ctx context.Context, company, username, password string) (directory.SessionToken, error)
}

// Logger defines the logging interface used by the Orchestrator.
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

// Metrics receives bootstrap run measurements (may be a no-op).
type Metrics interface {
	RecordBootstrap(success bool, duration time.Duration, locations int)
}

// Orchestrator makes the directory safe to schedule against: for every
// location it ensures a reserved class, a reserved teacher account, a
// reserved teacher group, and the membership linkage between them all
// exist, then exchanges the teacher credentials for a session token.
//
// Every creation step is check-then-create, so re-running Bootstrap
// after a partial failure is safe. The check-then-create pair is not
// atomic on the server side; concurrent bootstraps from separate
// processes racing on the same location could double-create. An
// in-process mutex serialises runs within this process, which is the
// accepted deployment shape (one core per school).
type Orchestrator struct {
	dir     DirectoryAPI
	index   *Index
	cfg     config.ProvisionConfig
	company string

	logger  Logger
	metrics Metrics

	mu sync.Mutex // serialises bootstrap runs in-process
}

// NewOrchestrator creates a provisioning orchestrator. The company
// string is the tenant identifier the directory authenticates against.
func NewOrchestrator(dir DirectoryAPI, index *Index, cfg config.ProvisionConfig, company string) *Orchestrator {
	return &Orchestrator{
		dir:     dir,
		index:   index,
		cfg:     cfg,
		company: company,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
}

// SetMetrics sets the metrics recorder (may be nil).
func (o *Orchestrator) SetMetrics(m Metrics) {
	o.metrics = m
}

// Bootstrap runs the eight provisioning stages in strict sequence and
// returns the populated index. Stages must not be reordered: each one
// consumes the committed state of the previous.
//
// Failure semantics: a failure for one location inside a per-location
// loop is logged and the loop continues, so one bad location never
// blocks the others. A failure to fetch or rebuild an entire dictionary
// aborts the remainder of the run with ErrDictionaryBuild (or
// ErrLocationsUnavailable for the initial fetch).
func (o *Orchestrator) Bootstrap(ctx context.Context) (*Index, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	runID := uuid.New().String()
	started := time.Now()
	log := func(success bool, locations int) {
		if o.metrics != nil {
			o.metrics.RecordBootstrap(success, time.Since(started), locations)
		}
	}

	o.logger.Info("bootstrap started", "run_id", runID)

	// Stage 1: the location list is the input to everything else.
	locations, err := o.dir.ListLocations(ctx)
	if err != nil {
		log(false, 0)
		return nil, fmt.Errorf("%w: %v", ErrLocationsUnavailable, err)
	}
	if len(locations) == 0 {
		log(false, 0)
		return nil, fmt.Errorf("%w: directory returned no locations", ErrLocationsUnavailable)
	}

	// Stage 2: ensure the reserved class exists per location.
	for _, loc := range locations {
		if err := o.ensureClass(ctx, loc); err != nil {
			o.logger.Warn("class provisioning failed for location",
				"run_id", runID, "location_id", loc.ID, "location", loc.Name, "error", err)
		}
	}

	// Stage 3: rebuild the class dictionaries by re-querying rather than
	// trusting create responses.
	if err := o.rebuildClassIndex(ctx, locations); err != nil {
		log(false, len(locations))
		return nil, err
	}

	// Stage 4: ensure the reserved teacher account exists per location.
	users, err := o.dir.ListUsers(ctx)
	if err != nil {
		log(false, len(locations))
		return nil, fmt.Errorf("%w: listing users: %v", ErrDictionaryBuild, err)
	}
	for _, loc := range locations {
		if err := o.ensureTeacherUser(ctx, loc, users); err != nil {
			o.logger.Warn("teacher account provisioning failed for location",
				"run_id", runID, "location_id", loc.ID, "error", err)
		}
	}

	// Stage 5: rebuild the teacher-user dictionary.
	if err := o.rebuildTeacherUserIndex(ctx); err != nil {
		log(false, len(locations))
		return nil, err
	}

	// Stage 6: ensure the reserved teacher group exists per location.
	groups, err := o.dir.ListGroups(ctx)
	if err != nil {
		log(false, len(locations))
		return nil, fmt.Errorf("%w: listing groups: %v", ErrDictionaryBuild, err)
	}
	for _, loc := range locations {
		if err := o.ensureTeacherGroup(ctx, loc, groups); err != nil {
			o.logger.Warn("teacher group provisioning failed for location",
				"run_id", runID, "location_id", loc.ID, "error", err)
		}
	}

	// Stage 7: rebuild the teacher-group dictionary.
	if err := o.rebuildTeacherGroupIndex(ctx); err != nil {
		log(false, len(locations))
		return nil, err
	}

	// Stage 8: link the default location's teacher into its group, then
	// exchange credentials for the session token.
	if err := o.linkAndAuthenticate(ctx, locations[0]); err != nil {
		log(false, len(locations))
		return nil, err
	}

	o.logger.Info("bootstrap complete",
		"run_id", runID,
		"locations", len(locations),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	log(true, len(locations))

	return o.index, nil
}

// teacherUsername returns the reserved username for a location, e.g.
// "slate.teacher.4".
func (o *Orchestrator) teacherUsername(locationID int) string {
	return o.cfg.TeacherPrefix + strconv.Itoa(locationID)
}

// teacherGroupName returns the reserved group name for a location, e.g.
// "Slate Teachers Riverside Primary".
func (o *Orchestrator) teacherGroupName(loc directory.Location) string {
	return o.cfg.TeacherGroupPrefix + loc.Name
}

func (o *Orchestrator) ensureClass(ctx context.Context, loc directory.Location) error {
	classes, err := o.dir.ListClasses(ctx, loc.ID)
	if err != nil {
		return fmt.Errorf("listing classes: %w", err)
	}
	for _, c := range classes {
		if c.Name == o.cfg.ClassName && c.LocationID == loc.ID {
			return nil
		}
	}

	if _, err := o.dir.CreateClass(ctx, o.cfg.ClassName, loc.ID); err != nil {
		return fmt.Errorf("creating class: %w", err)
	}
	o.logger.Info("reserved class created", "location_id", loc.ID, "class", o.cfg.ClassName)
	return nil
}

func (o *Orchestrator) rebuildClassIndex(ctx context.Context, locations []directory.Location) error {
	classes, err := o.dir.ListClasses(ctx, 0)
	if err != nil {
		return fmt.Errorf("%w: listing classes: %v", ErrDictionaryBuild, err)
	}

	groupIDs := make(map[int]int)
	uuids := make(map[int]string)
	for _, c := range classes {
		if c.Name == o.cfg.ClassName {
			groupIDs[c.LocationID] = c.ID
			uuids[c.LocationID] = c.UUID
		}
	}

	if len(groupIDs) == 0 {
		return fmt.Errorf("%w: no reserved class found in any of %d locations", ErrClassCreation, len(locations))
	}

	o.index.setClasses(groupIDs, uuids)
	return nil
}

func (o *Orchestrator) ensureTeacherUser(ctx context.Context, loc directory.Location, users []directory.User) error {
	username := o.teacherUsername(loc.ID)
	for _, u := range users {
		if u.Username == username {
			return nil
		}
	}

	_, err := o.dir.CreateUser(ctx, directory.User{
		Username:   username,
		Password:   o.cfg.TeacherPassword,
		FirstName:  "Slate",
		LastName:   loc.Name,
		LocationID: loc.ID,
	})
	if err != nil {
		return fmt.Errorf("creating teacher account: %w", err)
	}
	o.logger.Info("reserved teacher account created", "location_id", loc.ID, "username", username)
	return nil
}

func (o *Orchestrator) rebuildTeacherUserIndex(ctx context.Context) error {
	users, err := o.dir.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("%w: listing users: %v", ErrDictionaryBuild, err)
	}

	userIDs := make(map[int]int)
	for _, u := range users {
		if locID, ok := o.matchTeacherUsername(u.Username); ok {
			userIDs[locID] = u.ID
		}
	}

	o.index.setTeacherUsers(userIDs)
	return nil
}

// matchTeacherUsername extracts the location id from a reserved teacher
// username, or returns false when the username is not reserved.
func (o *Orchestrator) matchTeacherUsername(username string) (int, bool) {
	prefix := o.cfg.TeacherPrefix
	if len(username) <= len(prefix) || username[:len(prefix)] != prefix {
		return 0, false
	}
	locID, err := strconv.Atoi(username[len(prefix):])
	if err != nil {
		return 0, false
	}
	return locID, true
}

func (o *Orchestrator) ensureTeacherGroup(ctx context.Context, loc directory.Location, groups []directory.UserGroup) error {
	name := o.teacherGroupName(loc)
	for _, g := range groups {
		if g.Name == name && g.LocationID == loc.ID {
			return nil
		}
	}

	_, err := o.dir.CreateGroup(ctx, directory.UserGroup{
		Name:       name,
		LocationID: loc.ID,
	})
	if err != nil {
		return fmt.Errorf("creating teacher group: %w", err)
	}
	o.logger.Info("reserved teacher group created", "location_id", loc.ID, "group", name)
	return nil
}

func (o *Orchestrator) rebuildTeacherGroupIndex(ctx context.Context) error {
	groups, err := o.dir.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("%w: listing groups: %v", ErrDictionaryBuild, err)
	}

	groupIDs := make(map[int]int)
	for _, g := range groups {
		prefix := o.cfg.TeacherGroupPrefix
		if len(g.Name) > len(prefix) && g.Name[:len(prefix)] == prefix {
			groupIDs[g.LocationID] = g.ID
		}
	}

	o.index.setTeacherGroups(groupIDs)
	return nil
}

func (o *Orchestrator) linkAndAuthenticate(ctx context.Context, defaultLoc directory.Location) error {
	userID, ok := o.index.TeacherUserID(defaultLoc.ID)
	if !ok {
		return fmt.Errorf("%w: no teacher account for default location %d", ErrAuthentication, defaultLoc.ID)
	}
	groupID, ok := o.index.TeacherGroupID(defaultLoc.ID)
	if !ok {
		return fmt.Errorf("%w: no teacher group for default location %d", ErrAuthentication, defaultLoc.ID)
	}

	user, err := o.dir.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: fetching teacher account: %v", ErrAuthentication, err)
	}

	if !containsInt(user.GroupIDs, groupID) {
		user.GroupIDs = append(user.GroupIDs, groupID)
		if err := o.dir.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("%w: linking teacher to group: %v", ErrAuthentication, err)
		}
		o.logger.Info("teacher linked to group", "user_id", userID, "group_id", groupID)
	}

	token, err := o.dir.Authenticate(ctx, o.company, o.teacherUsername(defaultLoc.ID), o.cfg.TeacherPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	o.index.setToken(token)
	return nil
}

func containsInt(xs []int, target int) bool {
	for _, x := range xs {
		if x == target {
			return true
		}
	}
	return false
}
