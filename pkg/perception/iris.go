package perception

import (
	"image"
	"math"
)

// FaceMeshSize is the number of landmarks in a face mesh with refined iris
// points (468 face + 2×5 iris).
const FaceMeshSize = 478

// Eye selects one eye. RightEye is the subject's right eye, which appears on
// the left of an unmirrored camera image.
type Eye int

const (
	RightEye Eye = iota
	LeftEye
)

// String returns "right" or "left".
func (e Eye) String() string {
	if e == LeftEye {
		return "left"
	}
	return "right"
}

// Fixed face-mesh indices: eye contour rings and iris (center + 4 rim points).
var (
	eyeContour = [2][]int{
		RightEye: {33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246},
		LeftEye:  {362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398},
	}
	irisPoints = [2][]int{
		RightEye: {468, 469, 470, 471, 472},
		LeftEye:  {473, 474, 475, 476, 477},
	}
)

// PupilRefiner locates the pupil at pixel level inside an eye crop.
// eye is in frame pixel coordinates; the returned point is too.
type PupilRefiner interface {
	RefinePupil(frame image.Image, eye image.Rectangle) (Point2, bool)
}

// EyeReading is the per-eye output of IrisRatioEstimator. Pixel values are
// in frame coordinates.
type EyeReading struct {
	Horizontal float64    // -1 (image left edge of the eye) .. +1
	Vertical   float64    // -1 (top) .. +1, offset-compensated
	Pupil      Point2     // iris center or refined pupil, pixels
	Center     Point2     // eye contour centroid, pixels
	Gaze       [3]float64 // unit gaze vector from the eye-sphere model
	Box        image.Rectangle
	Refined    bool
}

// IrisRatioEstimator turns eye landmarks into horizontal/vertical pupil
// offset ratios and a 3D gaze vector.
type IrisRatioEstimator struct {
	cfg     GazeConfig
	refiner PupilRefiner
}

// NewIrisRatioEstimator creates an estimator; refiner may be nil.
func NewIrisRatioEstimator(cfg GazeConfig, refiner PupilRefiner) *IrisRatioEstimator {
	return &IrisRatioEstimator{cfg: cfg, refiner: refiner}
}

// Estimate measures one eye. It returns false when the landmark set is too
// short or contains non-finite coordinates.
func (e *IrisRatioEstimator) Estimate(face []Point3, eye Eye, frame image.Image, width, height int) (EyeReading, bool) {
	if len(face) < FaceMeshSize {
		return EyeReading{}, false
	}
	w, h := float64(width), float64(height)

	left, top := math.Inf(1), math.Inf(1)
	right, bottom := math.Inf(-1), math.Inf(-1)
	var center Point2
	for _, idx := range eyeContour[eye] {
		p := face[idx]
		if !finite(p.X) || !finite(p.Y) {
			return EyeReading{}, false
		}
		x, y := p.X*w, p.Y*h
		left, right = math.Min(left, x), math.Max(right, x)
		top, bottom = math.Min(top, y), math.Max(bottom, y)
		center.X += x
		center.Y += y
	}
	n := float64(len(eyeContour[eye]))
	center.X /= n
	center.Y /= n

	var pupil Point2
	for _, idx := range irisPoints[eye] {
		p := face[idx]
		if !finite(p.X) || !finite(p.Y) {
			return EyeReading{}, false
		}
		pupil.X += p.X * w
		pupil.Y += p.Y * h
	}
	pupil.X /= float64(len(irisPoints[eye]))
	pupil.Y /= float64(len(irisPoints[eye]))

	pad := e.cfg.EyeCropPadding
	box := image.Rect(
		int(math.Floor(left))-pad, int(math.Floor(top))-pad,
		int(math.Ceil(right))+pad, int(math.Ceil(bottom))+pad,
	)
	reading := EyeReading{Center: center, Box: box}

	if e.refiner != nil && frame != nil {
		crop := box.Intersect(frame.Bounds())
		if !crop.Empty() {
			if p, ok := e.refiner.RefinePupil(frame, crop); ok {
				pupil = p
				reading.Refined = true
			}
		}
	}

	eyeWidth := math.Max(right-left, 1e-5)
	eyeHeight := math.Max(bottom-top, 1e-5)
	reading.Horizontal = clamp(2*(pupil.X-left)/eyeWidth-1, -1, 1)
	reading.Vertical = clamp(2*(pupil.Y-top)/eyeHeight-1+e.cfg.VerticalOffset, -1, 1)
	reading.Pupil = pupil
	reading.Gaze = e.gazeVector(pupil, center, h)
	return reading, true
}

// gazeVector models the eye as a sphere: the 2D pupil offset from the eye
// center gives the in-plane components, the sphere surface gives depth.
func (e *IrisRatioEstimator) gazeVector(pupil, center Point2, imageHeight float64) [3]float64 {
	dx, dy := pupil.X-center.X, pupil.Y-center.Y
	dist := math.Hypot(dx, dy)
	if dist < 1e-6 {
		return [3]float64{0, 0, 1}
	}
	depthScale := imageHeight * e.cfg.DepthScale
	value := e.cfg.EyeSphereRadius*e.cfg.EyeSphereRadius - (dist/depthScale)*(dist/depthScale)
	dz := 0.1
	if value >= 0 {
		dz = math.Sqrt(math.Max(0.1, value))
	}
	z := dz * depthScale
	norm := math.Sqrt(dx*dx + dy*dy + z*z)
	return [3]float64{dx / norm, dy / norm, z / norm}
}

// eyeConsistency compares raw ratios of both eyes. consistent is false when
// either axis differs by more than the threshold; score is in [0, 1].
func eyeConsistency(cfg GazeConfig, right, left EyeReading) (consistent bool, score float64) {
	hDiff := math.Abs(right.Horizontal - left.Horizontal)
	vDiff := math.Abs(right.Vertical - left.Vertical)
	consistent = hDiff <= cfg.ConsistencyThreshold && vDiff <= cfg.ConsistencyThreshold

	hScore := 1 - hDiff/math.Max(1, math.Abs(right.Horizontal)+math.Abs(left.Horizontal))
	vScore := 1 - vDiff/math.Max(1, math.Abs(right.Vertical)+math.Abs(left.Vertical))
	hw, vw := cfg.HorizontalConsistencyWeight, cfg.VerticalConsistencyWeight
	score = (hw*hScore + vw*vScore) / (hw + vw)
	return consistent, score
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
