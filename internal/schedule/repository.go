package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for schedule profile persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// FetchAll retrieves every stored profile.
	FetchAll(ctx context.Context) ([]Profile, error)

	// Get retrieves one student's profile.
	// Returns (nil, nil) when the student has no profile.
	Get(ctx context.Context, studentID int) (*Profile, error)

	// Upsert inserts or replaces a profile, updating its timestamp.
	Upsert(ctx context.Context, profile *Profile) error
}

// SQLiteRepository implements Repository using SQLite.
// The weekly sessions map is stored as a JSON column.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// FetchAll retrieves every stored profile ordered by student id.
func (r *SQLiteRepository) FetchAll(ctx context.Context) ([]Profile, error) {
	query := `
		SELECT student_id, location_id, sessions, created_at, updated_at
		FROM schedule_profiles
		ORDER BY student_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying profiles: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close() //nolint:errcheck // Read-only iterator cleanup

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning profile: %w", ErrStoreUnavailable, err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating profiles: %w", ErrStoreUnavailable, err)
	}
	return profiles, nil
}

// Get retrieves one student's profile, or (nil, nil) when absent.
func (r *SQLiteRepository) Get(ctx context.Context, studentID int) (*Profile, error) {
	query := `
		SELECT student_id, location_id, sessions, created_at, updated_at
		FROM schedule_profiles
		WHERE student_id = ?`

	row := r.db.QueryRowContext(ctx, query, studentID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: querying profile: %w", ErrStoreUnavailable, err)
	}
	return p, nil
}

// Upsert inserts or replaces a profile.
func (r *SQLiteRepository) Upsert(ctx context.Context, profile *Profile) error {
	sessions := profile.Sessions
	if sessions == nil {
		sessions = map[string]DaySessions{}
	}
	sessionsJSON, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	query := `
		INSERT INTO schedule_profiles (student_id, location_id, sessions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(student_id) DO UPDATE SET
			location_id = excluded.location_id,
			sessions = excluded.sessions,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		profile.StudentID,
		profile.LocationID,
		string(sessionsJSON),
		profile.CreatedAt.Format(time.RFC3339),
		profile.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: upserting profile: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProfile scans one profile row, decoding the sessions JSON column.
func scanProfile(scanner rowScanner) (*Profile, error) {
	var p Profile
	var sessionsJSON string
	var createdAt, updatedAt string

	if err := scanner.Scan(&p.StudentID, &p.LocationID, &sessionsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(sessionsJSON), &p.Sessions); err != nil {
		return nil, fmt.Errorf("decoding sessions: %w", err)
	}
	if p.Sessions == nil {
		p.Sessions = map[string]DaySessions{}
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = t
	}

	return &p, nil
}
