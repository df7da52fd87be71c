package posedb

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/pose"
	"github.com/ayusman/mudra/internal/store"
)

// FromStore snapshots the stored poses as a flat-file database: every
// label in creation order with its recorded samples normalized. Malformed
// stored samples are logged and skipped.
func FromStore(st *store.Store) (*Database, error) {
	db := NewDatabase()

	poses, err := st.Poses().List()
	if err != nil {
		return nil, err
	}

	for _, p := range poses {
		db.Labels = append(db.Labels, p.Name)
		db.Samples[p.Name] = nil

		samples, err := st.Samples().GetByPoseID(p.ID)
		if err != nil {
			return nil, fmt.Errorf("load samples for %q: %w", p.Name, err)
		}

		for _, s := range samples {
			var rec pose.RecordedSample
			if err := json.Unmarshal(s.Data, &rec); err != nil {
				log.Printf("Skipping malformed sample %d of %s: %v", s.SampleIndex, p.Name, err)
				continue
			}

			var hand detector.HandLandmarks
			if len(rec.Landmarks) != detector.NumLandmarks {
				log.Printf("Skipping sample %d of %s: wrong landmark count", s.SampleIndex, p.Name)
				continue
			}
			copy(hand.Points[:], rec.Landmarks)

			sample, err := pose.SampleFromLandmarks(&hand)
			if err != nil {
				log.Printf("Skipping sample %d of %s: %v", s.SampleIndex, p.Name, err)
				continue
			}
			db.Samples[p.Name] = append(db.Samples[p.Name], sample)
		}
	}

	return db, nil
}

// ImportInto loads the database's labels and samples into the store.
// Labels that already exist keep their identity; their imported samples
// are appended after the existing ones. Flat-file samples are normalized
// coordinates, so they round-trip through the store unchanged by the
// matcher's normalization.
func ImportInto(db *Database, st *store.Store) error {
	for _, label := range db.Labels {
		p, err := st.Poses().GetByName(label)
		if err == store.ErrNotFound {
			p = &store.Pose{
				ID:        uuid.New().String(),
				Name:      label,
				Tolerance: pose.DefaultTolerance,
			}
			if err := st.Poses().Create(p); err != nil {
				return fmt.Errorf("create pose %q: %w", label, err)
			}
		} else if err != nil {
			return fmt.Errorf("look up pose %q: %w", label, err)
		}

		samples := db.Samples[label]
		if len(samples) == 0 {
			continue
		}

		raw := make([]json.RawMessage, 0, len(samples))
		for i, s := range samples {
			hand, ok := detector.FromVector(s)
			if !ok {
				return fmt.Errorf("label %q sample %d: %w", label, i, pose.ErrSampleShape)
			}
			data, err := json.Marshal(pose.RecordedSample{
				Landmarks: hand.Points[:],
				Timestamp: time.Now().UnixMilli(),
			})
			if err != nil {
				return err
			}
			raw = append(raw, data)
		}

		if err := st.Samples().Append(p.ID, raw); err != nil {
			return fmt.Errorf("save samples for %q: %w", label, err)
		}
	}

	return nil
}
