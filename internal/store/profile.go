package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/gymbro/internal/exercise"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Profile is a named set of analyzer thresholds for one exercise. The active
// profile of an exercise replaces its configured defaults.
type Profile struct {
	ID         string
	Name       string
	Exercise   exercise.Kind
	Thresholds exercise.Config
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProfileRepository provides CRUD operations for profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

const profileColumns = `id, name, exercise, extended_threshold, contracted_threshold, hold_frames,
	fault_threshold, fault_hold_frames, visibility_threshold, active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*Profile, error) {
	p := &Profile{}
	var kind string
	var active int
	c := &p.Thresholds

	err := row.Scan(&p.ID, &p.Name, &kind,
		&c.ExtendedThreshold, &c.ContractedThreshold, &c.HoldFrames,
		&c.FaultThreshold, &c.FaultHoldFrames, &c.VisibilityThreshold,
		&active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Exercise = exercise.Kind(kind)
	p.Active = active != 0
	return p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// deactivateOthers clears the active flag of every other profile for kind.
func deactivateOthers(tx *sql.Tx, kind exercise.Kind, keepID string) error {
	_, err := tx.Exec(`UPDATE profiles SET active = 0 WHERE exercise = ? AND id != ?`, string(kind), keepID)
	return err
}

// Create inserts a new profile. Creating an active profile deactivates the
// previous active profile of the same exercise.
func (r *ProfileRepository) Create(p *Profile) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if p.Active {
		if err := deactivateOthers(tx, p.Exercise, p.ID); err != nil {
			return err
		}
	}

	c := p.Thresholds
	_, err = tx.Exec(
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Exercise),
		c.ExtendedThreshold, c.ContractedThreshold, c.HoldFrames,
		c.FaultThreshold, c.FaultHoldFrames, c.VisibilityThreshold,
		boolInt(p.Active), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Active returns the active profile for kind, or ErrNotFound when the
// exercise runs on its configured defaults.
func (r *ProfileRepository) Active(kind exercise.Kind) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE exercise = ? AND active = 1`, string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List retrieves all profiles ordered by exercise and name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY exercise, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update overwrites an existing profile.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if p.Active {
		if err := deactivateOthers(tx, p.Exercise, p.ID); err != nil {
			return err
		}
	}

	c := p.Thresholds
	result, err := tx.Exec(
		`UPDATE profiles SET name = ?, exercise = ?, extended_threshold = ?, contracted_threshold = ?,
			hold_frames = ?, fault_threshold = ?, fault_hold_frames = ?, visibility_threshold = ?,
			active = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, string(p.Exercise), c.ExtendedThreshold, c.ContractedThreshold,
		c.HoldFrames, c.FaultThreshold, c.FaultHoldFrames, c.VisibilityThreshold,
		boolInt(p.Active), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// Activate marks the profile active and deactivates its siblings.
func (r *ProfileRepository) Activate(id string) error {
	p, err := r.GetByID(id)
	if err != nil {
		return err
	}
	p.Active = true
	return r.Update(p)
}

// Delete removes a profile from the database by its ID.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
