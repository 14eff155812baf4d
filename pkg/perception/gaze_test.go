package perception

import (
	"image"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Synthetic eye geometry in normalized coordinates.
const (
	eyeHalfWidth  = 0.03
	eyeHalfHeight = 0.015
	irisRadius    = 0.005
	eyeCenterY    = 0.45

	// irisLevel puts the iris at 35% of the eye height, which the default
	// vertical offset maps to a vertical ratio of 0.
	irisLevel = -0.3 * eyeHalfHeight
)

var eyeCenterX = [2]float64{RightEye: 0.35, LeftEye: 0.65}

// syntheticFace builds a full face mesh with elliptical eye contours and the
// iris of both eyes shifted by (dx, dy) from the eye center.
func syntheticFace(dx, dy float64) []Point3 {
	face := make([]Point3, FaceMeshSize)
	for i := range face {
		face[i] = Point3{X: 0.5, Y: 0.5}
	}
	for _, eye := range []Eye{RightEye, LeftEye} {
		cx := eyeCenterX[eye]
		contour := eyeContour[eye]
		for k, idx := range contour {
			angle := 2 * math.Pi * float64(k) / float64(len(contour))
			face[idx] = Point3{
				X: cx + eyeHalfWidth*math.Cos(angle),
				Y: eyeCenterY + eyeHalfHeight*math.Sin(angle),
			}
		}
		ix, iy := cx+dx, eyeCenterY+dy
		iris := irisPoints[eye]
		face[iris[0]] = Point3{X: ix, Y: iy}
		face[iris[1]] = Point3{X: ix + irisRadius, Y: iy}
		face[iris[2]] = Point3{X: ix, Y: iy - irisRadius}
		face[iris[3]] = Point3{X: ix - irisRadius, Y: iy}
		face[iris[4]] = Point3{X: ix, Y: iy + irisRadius}
	}
	return face
}

func TestIrisRatioEstimator_Ratios(t *testing.T) {
	cfg := DefaultConfig().Gaze
	est := NewIrisRatioEstimator(cfg, nil)

	tests := []struct {
		name   string
		dx, dy float64
		wantH  float64
		wantV  float64
	}{
		{"centered iris", 0, irisLevel, 0, 0},
		{"iris towards image right", 0.012, irisLevel, 0.4, 0},
		{"iris towards image left", -0.015, irisLevel, -0.5, 0},
		{"iris raised", 0, -0.012, 0, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			face := syntheticFace(tt.dx, tt.dy)
			for _, eye := range []Eye{RightEye, LeftEye} {
				r, ok := est.Estimate(face, eye, nil, 640, 480)
				require.True(t, ok, "%s eye", eye)
				assert.InDelta(t, tt.wantH, r.Horizontal, 1e-6, "%s eye horizontal", eye)
				assert.InDelta(t, tt.wantV, r.Vertical, 1e-6, "%s eye vertical", eye)
				assert.False(t, r.Refined)
			}
		})
	}
}

func TestIrisRatioEstimator_RejectsBadLandmarks(t *testing.T) {
	est := NewIrisRatioEstimator(DefaultConfig().Gaze, nil)

	_, ok := est.Estimate(make([]Point3, 468), RightEye, nil, 640, 480)
	assert.False(t, ok, "mesh without iris points")

	face := syntheticFace(0, 0)
	face[irisPoints[LeftEye][0]].X = math.NaN()
	_, ok = est.Estimate(face, LeftEye, nil, 640, 480)
	assert.False(t, ok, "NaN iris landmark")

	_, ok = est.Estimate(face, RightEye, nil, 640, 480)
	assert.True(t, ok, "the other eye is unaffected")
}

func TestIrisRatioEstimator_GazeVector(t *testing.T) {
	est := NewIrisRatioEstimator(DefaultConfig().Gaze, nil)

	straight, ok := est.Estimate(syntheticFace(0, 0), RightEye, nil, 640, 480)
	require.True(t, ok)
	assert.InDelta(t, 1.0, straight.Gaze[2], 1e-6, "centered pupil looks straight ahead")

	side, ok := est.Estimate(syntheticFace(0.012, 0), RightEye, nil, 640, 480)
	require.True(t, ok)
	norm := math.Sqrt(side.Gaze[0]*side.Gaze[0] + side.Gaze[1]*side.Gaze[1] + side.Gaze[2]*side.Gaze[2])
	assert.InDelta(t, 1.0, norm, 1e-9, "unit length")
	assert.Greater(t, side.Gaze[0], 0.0, "x follows the pupil offset")
}

type fixedRefiner struct {
	at   Point2
	seen image.Rectangle
}

func (f *fixedRefiner) RefinePupil(_ image.Image, eye image.Rectangle) (Point2, bool) {
	f.seen = eye
	return f.at, true
}

func TestIrisRatioEstimator_UsesRefiner(t *testing.T) {
	cfg := DefaultConfig().Gaze
	// Right edge of the right eye in pixels.
	refiner := &fixedRefiner{at: Point2{X: (0.35 + eyeHalfWidth) * 640, Y: (eyeCenterY + irisLevel) * 480}}
	est := NewIrisRatioEstimator(cfg, refiner)
	frame := image.NewGray(image.Rect(0, 0, 640, 480))

	r, ok := est.Estimate(syntheticFace(0, irisLevel), RightEye, frame, 640, 480)
	require.True(t, ok)
	assert.True(t, r.Refined)
	assert.InDelta(t, 1.0, r.Horizontal, 1e-6)
	assert.Equal(t, r.Box, refiner.seen, "crop is the padded eye box")
	assert.Equal(t, 204-cfg.EyeCropPadding, r.Box.Min.X)
}

func TestEyeConsistency(t *testing.T) {
	cfg := DefaultConfig().Gaze

	ok, score := eyeConsistency(cfg, EyeReading{Horizontal: 0.3, Vertical: 0.1}, EyeReading{Horizontal: 0.3, Vertical: 0.1})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)

	ok, score = eyeConsistency(cfg, EyeReading{Horizontal: 0.3, Vertical: 0.5}, EyeReading{Horizontal: 0.3, Vertical: -0.1})
	assert.False(t, ok, "vertical disagreement beyond threshold")
	assert.Less(t, score, 1.0)
}

func TestDominantEye(t *testing.T) {
	tests := []struct {
		name        string
		right, left float64
		want        Eye
	}{
		{"right larger", 0.5, -0.1, RightEye},
		{"left larger", 0.1, -0.4, LeftEye},
		{"tie goes left", 0.3, -0.3, LeftEye},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dominant, other := dominantEye(EyeReading{Vertical: tt.right}, EyeReading{Vertical: tt.left})
			assert.Equal(t, tt.want, dominant)
			assert.NotEqual(t, dominant, other)
		})
	}
}

func TestGazeDirectionClassifier_Classify(t *testing.T) {
	c := NewGazeDirectionClassifier(DefaultConfig().Gaze, nil)

	tests := []struct {
		name string
		h, v float64
		want Direction
	}{
		{"origin", 0, 0, GazeCenter},
		{"inside center band", 0.1, 0.05, GazeCenter},
		{"left", -0.3, 0, GazeLeft},
		{"right", 0.3, 0, GazeRight},
		{"up", 0, -0.2, GazeUp},
		{"up with slight right stays up", 0.15, -0.2, GazeUp},
		{"up right", 0.3, -0.2, GazeUpRight},
		{"up left", -0.3, -0.2, GazeUpLeft},
		{"down", 0, 0.2, GazeDown},
		{"down right", 0.3, 0.2, GazeDownRight},
		{"down left", -0.3, 0.2, GazeDownLeft},
		{"between center and down bands", 0.1, 0.09, GazeCenter},
		{"just past up threshold", 0.05, -0.09, GazeUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := GazeRatios{Horizontal: tt.h, Vertical: tt.v}
			got := c.Classify(r)
			if got != tt.want {
				t.Errorf("Classify(%v, %v) = %q, want %q", tt.h, tt.v, got, tt.want)
			}
			if again := c.Classify(r); again != got {
				t.Errorf("Classify is not idempotent: %q then %q", got, again)
			}
		})
	}
}

func TestGazeDirectionClassifier_Process(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
		want   Direction
	}{
		{"looking straight", 0, irisLevel, GazeCenter},
		// Iris towards the image right is the subject's left once mirrored.
		{"looking left", 0.012, irisLevel, GazeLeft},
		{"looking right", -0.012, irisLevel, GazeRight},
		{"looking up", 0, -0.012, GazeUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewGazeDirectionClassifier(DefaultConfig().Gaze, nil)
			face := syntheticFace(tt.dx, tt.dy)

			var state GazeState
			for i := 0; i < 10; i++ {
				state = c.Process(FrameObservation{Timestamp: frameTime(i), FaceLandmarks: face}, 0)
			}
			require.True(t, state.Valid)
			assert.Equal(t, tt.want, state.Direction)
			assert.False(t, state.Distracted)
			assert.InDelta(t, math.Max(math.Abs(state.Ratios.Horizontal), math.Abs(state.Ratios.Vertical)), state.Confidence, 1e-9,
				"consistent eyes give full consistency score")
		})
	}
}

func TestGazeDirectionClassifier_PitchCompensation(t *testing.T) {
	c := NewGazeDirectionClassifier(DefaultConfig().Gaze, nil)
	face := syntheticFace(0, irisLevel)

	// Chin down 30° shifts the vertical ratio by -π/6 × 0.3 ≈ -0.157.
	state := c.Process(FrameObservation{FaceLandmarks: face}, Radians(-30))
	assert.InDelta(t, Radians(-30)*0.3, state.Ratios.Vertical, 1e-6)
	assert.Equal(t, GazeUp, state.Direction)
}

func TestGazeDirectionClassifier_AbsentFaceKeepsState(t *testing.T) {
	c := NewGazeDirectionClassifier(DefaultConfig().Gaze, nil)
	face := syntheticFace(0.012, irisLevel)

	var last GazeState
	for i := 0; i < 10; i++ {
		last = c.Process(FrameObservation{Timestamp: frameTime(i), FaceLandmarks: face}, 0)
	}
	require.Equal(t, GazeLeft, last.Direction)

	for i := 10; i < 70; i++ {
		state := c.Process(FrameObservation{Timestamp: frameTime(i)}, 0)
		assert.Equal(t, last, state, "frame %d", i)
	}
	assert.False(t, c.State().Distracted, "the away timer does not advance without face data")
}

func TestGazeDirectionClassifier_Distraction(t *testing.T) {
	c := NewGazeDirectionClassifier(DefaultConfig().Gaze, nil)
	face := syntheticFace(0.012, irisLevel)

	starts := 0
	wasDistracted := false
	for i := 0; i <= 48; i++ {
		state := c.Process(FrameObservation{Timestamp: frameTime(i), FaceLandmarks: face}, 0)
		if state.Distracted && !wasDistracted {
			starts++
		}
		wasDistracted = state.Distracted
	}
	assert.Equal(t, 1, starts)
	assert.True(t, c.State().Distracted)

	c.Reset()
	assert.Equal(t, GazeState{Direction: GazeCenter}, c.State())
}

func TestDistractionTracker(t *testing.T) {
	type step struct {
		frames    []int // 30fps frame indices
		direction Direction
	}
	tests := []struct {
		name           string
		steps          []step
		wantDistracted bool
		wantStarts     int
	}{
		{
			name:           "left for 1.4s",
			steps:          []step{{frameRange(0, 42), GazeLeft}},
			wantDistracted: false,
		},
		{
			name:           "left for 1.6s",
			steps:          []step{{frameRange(0, 48), GazeLeft}},
			wantDistracted: true,
			wantStarts:     1,
		},
		{
			name: "single center frame resets",
			steps: []step{
				{frameRange(0, 23), GazeLeft},
				{[]int{24}, GazeCenter},
				{frameRange(25, 48), GazeLeft},
			},
			wantDistracted: false,
		},
		{
			name: "switching between primary directions keeps the timer",
			steps: []step{
				{frameRange(0, 20), GazeLeft},
				{frameRange(21, 48), GazeDown},
			},
			wantDistracted: true,
			wantStarts:     1,
		},
		{
			name: "diagonal resets",
			steps: []step{
				{frameRange(0, 23), GazeUp},
				{[]int{24}, GazeUpLeft},
				{frameRange(25, 48), GazeUp},
			},
			wantDistracted: false,
		},
		{
			name: "long data gap restarts the excursion",
			steps: []step{
				{frameRange(0, 30), GazeRight},
				{frameRange(48, 50), GazeRight},
			},
			wantDistracted: false,
		},
		{
			name: "short data gap keeps the excursion",
			steps: []step{
				{frameRange(0, 30), GazeRight},
				{frameRange(42, 48), GazeRight},
			},
			wantDistracted: true,
			wantStarts:     1,
		},
		{
			name:           "stays distracted but starts once",
			steps:          []step{{frameRange(0, 150), GazeLeft}},
			wantDistracted: true,
			wantStarts:     1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig().Gaze
			d := NewDistractionTracker(cfg.DistractionThreshold, cfg.MaxGap)

			var distracted bool
			starts := 0
			for _, s := range tt.steps {
				for _, f := range s.frames {
					var started bool
					distracted, started = d.Update(s.direction, frameTime(f))
					if started {
						starts++
					}
				}
			}
			if distracted != tt.wantDistracted {
				t.Errorf("distracted: got %v, want %v", distracted, tt.wantDistracted)
			}
			if starts != tt.wantStarts {
				t.Errorf("starts: got %d, want %d", starts, tt.wantStarts)
			}
		})
	}
}

func TestDistractionTracker_ThresholdIsStrict(t *testing.T) {
	d := NewDistractionTracker(1500*time.Millisecond, 500*time.Millisecond)
	var distracted bool
	for at := time.Duration(0); at <= 1500*time.Millisecond; at += 250 * time.Millisecond {
		distracted, _ = d.Update(GazeLeft, at)
	}
	assert.False(t, distracted, "exactly at the threshold")

	distracted, started := d.Update(GazeLeft, 1501*time.Millisecond)
	assert.True(t, distracted)
	assert.True(t, started)
}

// frameRange returns frame indices from..to inclusive.
func frameRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
