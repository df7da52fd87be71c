package pose

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/detector"
)

// RecordedSample is the JSON shape of one raw capture as stored by the
// recorder and the samples API.
type RecordedSample struct {
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

// Averager folds several recorded samples of the same label into one
// canonical landmark set, used as the label's display template.
type Averager struct{}

// NewAverager creates a new Averager instance.
func NewAverager() *Averager {
	return &Averager{}
}

// Average parses the raw samples and returns the element-wise mean of their
// landmark positions. All samples must carry exactly 21 landmarks.
func (a *Averager) Average(samples []json.RawMessage) ([]detector.Point3D, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	sum := make([]float64, SampleLen)

	for i, raw := range samples {
		var sample RecordedSample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return nil, fmt.Errorf("parse sample %d: %w", i, err)
		}
		if len(sample.Landmarks) != detector.NumLandmarks {
			return nil, fmt.Errorf("sample %d: %w: got %d landmarks",
				i, ErrSampleShape, len(sample.Landmarks))
		}

		flat := make([]float64, 0, SampleLen)
		for _, p := range sample.Landmarks {
			flat = append(flat, p.X, p.Y, p.Z)
		}
		floats.Add(sum, flat)
	}

	floats.Scale(1/float64(len(samples)), sum)

	averaged := make([]detector.Point3D, detector.NumLandmarks)
	for i := range averaged {
		averaged[i] = detector.Point3D{X: sum[i*3], Y: sum[i*3+1], Z: sum[i*3+2]}
	}
	return averaged, nil
}
