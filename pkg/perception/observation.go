package perception

import (
	"image"
	"strings"
	"time"
)

// Point2 is a 2D point. Landmarks use normalized image coordinates
// (0..1, y pointing down); pupil positions use pixels.
type Point2 struct {
	X, Y float64
}

// Point3 is a normalized 3D landmark.
type Point3 struct {
	X, Y, Z float64
}

// GestureLabel is the per-frame output of the external gesture classifier.
type GestureLabel struct {
	Name  string
	Score float64
}

// FrameObservation is everything the external detector produced for one
// video frame. Every field except Timestamp may be absent independently.
type FrameObservation struct {
	// Timestamp is a monotonic offset (typically since session start).
	// Frames must be fed in non-decreasing Timestamp order; behaviour for
	// out-of-order timestamps is undefined.
	Timestamp time.Duration

	Rotation      *Matrix3      // head rotation; nil when no face
	FaceLandmarks []Point3      // face mesh with iris points; nil when no face
	HandLandmarks []Point2      // 21 hand points; nil when no hand
	Gesture       *GestureLabel // raw classifier label; nil when no hand

	// Frame is the optional source image, used only for pixel-level pupil
	// refinement. FrameWidth/FrameHeight give the pixel size when Frame is
	// absent; zero means unknown.
	Frame       image.Image
	FrameWidth  int
	FrameHeight int
}

// noGestureLabel is what hand classifiers report for a hand without a
// recognised pose.
const noGestureLabel = "None"

// label returns the usable gesture label name, or "" when absent.
func (o FrameObservation) label() string {
	if o.Gesture == nil {
		return ""
	}
	name := strings.TrimSpace(o.Gesture.Name)
	if name == noGestureLabel {
		return ""
	}
	return name
}

// frameSize returns the pixel dimensions used to scale landmarks.
func (o FrameObservation) frameSize(cfg GazeConfig) (w, h int) {
	if o.Frame != nil {
		b := o.Frame.Bounds()
		if b.Dx() > 0 && b.Dy() > 0 {
			return b.Dx(), b.Dy()
		}
	}
	if o.FrameWidth > 0 && o.FrameHeight > 0 {
		return o.FrameWidth, o.FrameHeight
	}
	return cfg.DefaultFrameWidth, cfg.DefaultFrameHeight
}
