package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Pose is a labeled reference pose definition.
type Pose struct {
	ID        string
	Name      string
	Tolerance float64
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Landmark is one template landmark row for a pose.
type Landmark struct {
	Index int
	X     float64
	Y     float64
	Z     float64
}

// PoseRepository provides CRUD operations for poses.
type PoseRepository struct {
	db *sql.DB
}

// Poses returns the pose repository for this store.
func (s *Store) Poses() *PoseRepository {
	return &PoseRepository{db: s.db}
}

// Create inserts a new pose into the database.
func (r *PoseRepository) Create(p *Pose) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO poses (id, name, tolerance, samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Tolerance, p.Samples, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a pose by its ID.
func (r *PoseRepository) GetByID(id string) (*Pose, error) {
	return r.get(`SELECT id, name, tolerance, samples, created_at, updated_at
		 FROM poses WHERE id = ?`, id)
}

// GetByName retrieves a pose by its label name.
func (r *PoseRepository) GetByName(name string) (*Pose, error) {
	return r.get(`SELECT id, name, tolerance, samples, created_at, updated_at
		 FROM poses WHERE name = ?`, name)
}

func (r *PoseRepository) get(query string, arg any) (*Pose, error) {
	p := &Pose{}
	err := r.db.QueryRow(query, arg).
		Scan(&p.ID, &p.Name, &p.Tolerance, &p.Samples, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List retrieves all poses ordered by creation time, oldest first. The
// order is stable, so the matcher's label order survives restarts.
func (r *PoseRepository) List() ([]*Pose, error) {
	rows, err := r.db.Query(
		`SELECT id, name, tolerance, samples, created_at, updated_at
		 FROM poses ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var poses []*Pose
	for rows.Next() {
		p := &Pose{}
		err := rows.Scan(&p.ID, &p.Name, &p.Tolerance, &p.Samples, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return poses, nil
}

// Update updates an existing pose in the database.
func (r *PoseRepository) Update(p *Pose) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE poses SET name = ?, tolerance = ?, samples = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Tolerance, p.Samples, p.UpdatedAt, p.ID,
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
	return nil
}

// Delete removes a pose (and, via cascade, its samples, landmarks, and
// actions) from the database.
func (r *PoseRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM poses WHERE id = ?`, id)
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

// SetLandmarks replaces the template landmarks stored for a pose.
func (r *PoseRepository) SetLandmarks(poseID string, landmarks []Landmark) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pose_landmarks WHERE pose_id = ?`, poseID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO pose_landmarks (pose_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range landmarks {
		if _, err := stmt.Exec(poseID, l.Index, l.X, l.Y, l.Z); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetLandmarks retrieves a pose's template landmarks ordered by index.
func (r *PoseRepository) GetLandmarks(poseID string) ([]Landmark, error) {
	rows, err := r.db.Query(
		`SELECT landmark_index, x, y, z FROM pose_landmarks
		 WHERE pose_id = ? ORDER BY landmark_index`,
		poseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var landmarks []Landmark
	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.Index, &l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		landmarks = append(landmarks, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return landmarks, nil
}
