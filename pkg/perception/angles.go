package perception

import "math"

// Matrix3 is a row-major 3x3 rotation matrix as produced by the face detector.
type Matrix3 [3][3]float64

// Angles holds head Euler angles in degrees.
type Angles struct {
	Pitch float64 // rotation about X, positive = chin up
	Yaw   float64 // rotation about Y
	Roll  float64 // rotation about Z
}

// EulerFromRotation decomposes a rotation matrix into pitch/yaw/roll degrees
// using the X-Y-Z atan2 decomposition (R = Rz·Ry·Rx).
// Degenerate or non-orthogonal matrices still yield finite angles; the result
// is simply not meaningful.
func EulerFromRotation(r Matrix3) Angles {
	pitch := math.Atan2(r[2][1], r[2][2])
	yaw := math.Atan2(-r[2][0], math.Sqrt(r[0][0]*r[0][0]+r[1][0]*r[1][0]))
	roll := math.Atan2(r[1][0], r[0][0])
	return Angles{
		Pitch: Degrees(pitch),
		Yaw:   Degrees(yaw),
		Roll:  Degrees(roll),
	}
}

// RotationFromEuler builds R = Rz(roll)·Ry(yaw)·Rx(pitch) from degrees.
// It is the inverse of EulerFromRotation for |yaw| < 90°.
func RotationFromEuler(a Angles) Matrix3 {
	x, y, z := Radians(a.Pitch), Radians(a.Yaw), Radians(a.Roll)
	cx, sx := math.Cos(x), math.Sin(x)
	cy, sy := math.Cos(y), math.Sin(y)
	cz, sz := math.Cos(z), math.Sin(z)

	return Matrix3{
		{cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx},
		{sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx},
		{-sy, cy * sx, cy * cx},
	}
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
