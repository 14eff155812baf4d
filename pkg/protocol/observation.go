package protocol

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for ObservationData.Image
	_ "image/png"
	"math"
	"time"

	"github.com/teslashibe/go-cockpit/pkg/perception"
)

// ErrBadTimestamp is returned for observations without a usable timestamp.
var ErrBadTimestamp = errors.New("protocol: observation timestamp is negative or out of range")

// maxTimestampMs is the first millisecond value that overflows time.Duration.
const maxTimestampMs = float64(math.MaxInt64) / float64(time.Millisecond)

// Validate checks the fields that cannot be treated as absent.
func (o *ObservationData) Validate() error {
	if math.IsNaN(o.TimestampMs) || o.TimestampMs < 0 || o.TimestampMs >= maxTimestampMs {
		return ErrBadTimestamp
	}
	return nil
}

// Timestamp returns the observation time as a monotonic offset.
func (o *ObservationData) Timestamp() time.Duration {
	return time.Duration(o.TimestampMs * float64(time.Millisecond))
}

// Observation converts the wire form into the engine's input. Malformed
// parts (a rotation that is not 3×3, an undecodable image) become absent.
func (o *ObservationData) Observation() perception.FrameObservation {
	obs := perception.FrameObservation{Timestamp: o.Timestamp()}

	if r, ok := rotationMatrix(o.Rotation); ok {
		obs.Rotation = &r
	}
	if len(o.Face) > 0 {
		obs.FaceLandmarks = make([]perception.Point3, len(o.Face))
		for i, p := range o.Face {
			obs.FaceLandmarks[i] = perception.Point3{X: p.X, Y: p.Y, Z: p.Z}
		}
	}
	if len(o.Hand) > 0 {
		obs.HandLandmarks = make([]perception.Point2, len(o.Hand))
		for i, p := range o.Hand {
			obs.HandLandmarks[i] = perception.Point2{X: p.X, Y: p.Y}
		}
	}
	if o.Gesture != nil && o.Gesture.Label != "" {
		obs.Gesture = &perception.GestureLabel{Name: o.Gesture.Label, Score: o.Gesture.Score}
	}
	if o.Frame != nil {
		obs.FrameWidth, obs.FrameHeight = o.Frame.Width, o.Frame.Height
	}
	if o.Image != "" {
		if img, err := DecodeImage(o.Image); err == nil {
			obs.Frame = img
		}
	}
	return obs
}

// FromObservation converts an engine observation to its wire form. The
// source image is not carried.
func FromObservation(obs perception.FrameObservation) ObservationData {
	data := ObservationData{TimestampMs: durationMs(obs.Timestamp)}
	if obs.Rotation != nil {
		data.Rotation = make([][]float64, 3)
		for i := range obs.Rotation {
			data.Rotation[i] = []float64{obs.Rotation[i][0], obs.Rotation[i][1], obs.Rotation[i][2]}
		}
	}
	for _, p := range obs.FaceLandmarks {
		data.Face = append(data.Face, Point3{X: p.X, Y: p.Y, Z: p.Z})
	}
	for _, p := range obs.HandLandmarks {
		data.Hand = append(data.Hand, Point2{X: p.X, Y: p.Y})
	}
	if obs.Gesture != nil {
		data.Gesture = &GestureLabel{Label: obs.Gesture.Name, Score: obs.Gesture.Score}
	}
	if obs.FrameWidth > 0 && obs.FrameHeight > 0 {
		data.Frame = &FrameSize{Width: obs.FrameWidth, Height: obs.FrameHeight}
	}
	return data
}

// DecodeImage decodes a base64 JPEG or PNG.
func DecodeImage(b64 string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode image base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func rotationMatrix(rows [][]float64) (perception.Matrix3, bool) {
	var m perception.Matrix3
	if len(rows) != 3 {
		return m, false
	}
	for i, row := range rows {
		if len(row) != 3 {
			return m, false
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return m, false
			}
			m[i][j] = v
		}
	}
	return m, true
}
