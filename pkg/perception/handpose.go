package perception

import (
	"math"
)

// HandLandmarkCount is the size of a hand landmark set (wrist + 4 per finger).
const HandLandmarkCount = 21

// Hand landmark indices.
const (
	handWrist     = 0
	handThumbTip  = 4
	handIndexMCP  = 5
	handPinkyMCP  = 17
	fingerCount   = 5
	jointsPerHand = 4
)

// finger returns the MCP, PIP, DIP and TIP indices of finger i (0 = thumb).
func finger(i int) [jointsPerHand]int {
	base := 1 + i*jointsPerHand
	return [jointsPerHand]int{base, base + 1, base + 2, base + 3}
}

// HandPose is the geometric reading of one hand.
type HandPose struct {
	Extended   [fingerCount]bool
	Curled     [fingerCount]bool
	ThumbAngle float64 // degrees, atan2 of thumb tip relative to wrist (y down)
	PalmWidth  float64
	OpenPalm   bool
	Wrist      Point2
}

// validHand reports whether pts is a usable landmark set.
func validHand(pts []Point2) bool {
	if len(pts) < HandLandmarkCount {
		return false
	}
	for _, p := range pts[:HandLandmarkCount] {
		if !finite(p.X) || !finite(p.Y) {
			return false
		}
	}
	return true
}

// ReadHandPose classifies each finger as extended (consecutive joint
// segments nearly collinear) and curled (tip not above its PIP joint).
func ReadHandPose(cfg GestureConfig, pts []Point2) (HandPose, bool) {
	if !validHand(pts) {
		return HandPose{}, false
	}
	pose := HandPose{
		Wrist:     pts[handWrist],
		PalmWidth: dist(pts[handIndexMCP], pts[handPinkyMCP]),
	}
	for i := 0; i < fingerCount; i++ {
		j := finger(i)
		mcp, pip, dip, tip := pts[j[0]], pts[j[1]], pts[j[2]], pts[j[3]]
		pose.Extended[i] = cosine(sub(pip, mcp), sub(dip, pip)) > cfg.FingerStraightness &&
			cosine(sub(dip, pip), sub(tip, dip)) > cfg.FingerStraightness
		pose.Curled[i] = tip.Y >= pip.Y-pose.PalmWidth*cfg.CurlTolerance
	}
	thumb := sub(pts[handThumbTip], pts[handWrist])
	pose.ThumbAngle = Degrees(math.Atan2(thumb.Y, thumb.X))

	open := math.Abs(pts[handThumbTip].X-pts[handWrist].X) > cfg.ThumbLateral
	for i := 1; i < fingerCount && open; i++ {
		j := finger(i)
		open = pts[j[3]].Y < pts[j[0]].Y
	}
	pose.OpenPalm = open
	return pose, true
}

// thumbGesture derives Thumb_Left/Thumb_Right: thumb extended, the other
// four fingers curled and the thumb angle inside one of the bands.
func thumbGesture(cfg GestureConfig, pose HandPose) string {
	if !pose.Extended[0] {
		return ""
	}
	for i := 1; i < fingerCount; i++ {
		if !pose.Curled[i] {
			return ""
		}
	}
	switch {
	case cfg.ThumbLeftBand.Covers(pose.ThumbAngle):
		return LabelThumbLeft
	case cfg.ThumbRightBand.Covers(pose.ThumbAngle):
		return LabelThumbRight
	}
	return ""
}

func sub(a, b Point2) Point2 { return Point2{X: a.X - b.X, Y: a.Y - b.Y} }

func dist(a, b Point2) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

func cosine(a, b Point2) float64 {
	return (a.X*b.X + a.Y*b.Y) / (math.Hypot(a.X, a.Y)*math.Hypot(b.X, b.Y) + 1e-6)
}
