package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample is one raw recorded capture stored for a pose.
type Sample struct {
	ID          int64           `json:"id"`
	PoseID      string          `json:"pose_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository provides CRUD operations for pose samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append stores recorded samples for a pose in a single transaction,
// continuing the existing sample order and updating the pose's sample
// count. Earlier samples are never touched.
func (r *SampleRepository) Append(poseID string, samples []json.RawMessage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(sample_index) + 1, 0) FROM pose_samples WHERE pose_id = ?`,
		poseID,
	).Scan(&next)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO pose_samples (pose_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, data := range samples {
		if _, err := stmt.Exec(poseID, next+i, string(data)); err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		`UPDATE poses SET samples = samples + ?, updated_at = ? WHERE id = ?`,
		len(samples), time.Now(), poseID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetByPoseID retrieves all samples for a pose in recorded order.
func (r *SampleRepository) GetByPoseID(poseID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, pose_id, sample_index, data, created_at
		 FROM pose_samples
		 WHERE pose_id = ?
		 ORDER BY sample_index`,
		poseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.PoseID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteByPoseID removes all samples for a pose and resets its count.
func (r *SampleRepository) DeleteByPoseID(poseID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pose_samples WHERE pose_id = ?`, poseID); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`UPDATE poses SET samples = 0, updated_at = ? WHERE id = ?`,
		time.Now(), poseID); err != nil {
		return err
	}

	return tx.Commit()
}
