package perception

import (
	"math"
	"time"
)

// HeadReading exposes the intermediate signals of the last processed frame,
// mostly for tuning and dashboards.
type HeadReading struct {
	Angles         Angles
	SmoothedPitch  float64
	SmoothedYaw    float64
	PitchThreshold float64
	YawThreshold   float64
	RollThreshold  float64
	PitchCrossings int
	YawCrossings   int
}

// HeadMotionClassifier detects debounced NOD and SHAKE gestures from a
// stream of head rotation matrices.
//
// State machine: IDLE → (conditions met) → EMIT → COOLDOWN → IDLE. The
// cooldown is shared between NOD and SHAKE.
type HeadMotionClassifier struct {
	cfg HeadConfig

	pitch *History[float64]
	yaw   *History[float64]
	roll  *History[float64]

	pitchThreshold AdaptiveThreshold
	yawThreshold   AdaptiveThreshold
	rollThreshold  AdaptiveThreshold

	pitchCross *ZeroCrossCounter
	yawCross   *ZeroCrossCounter

	lastEmit   time.Duration
	hasEmitted bool
	reading    HeadReading
}

// NewHeadMotionClassifier creates a classifier. cfg must already be valid.
func NewHeadMotionClassifier(cfg HeadConfig) *HeadMotionClassifier {
	threshold := func(a AxisConfig) AdaptiveThreshold {
		return AdaptiveThreshold{
			Base:        a.Base,
			Sensitivity: a.Sensitivity,
			Window:      cfg.AmplitudeWindow,
			MinSamples:  cfg.MinSamples,
		}
	}
	return &HeadMotionClassifier{
		cfg:            cfg,
		pitch:          NewHistory[float64](cfg.WindowSize, cfg.HistoryMaxAge),
		yaw:            NewHistory[float64](cfg.WindowSize, cfg.HistoryMaxAge),
		roll:           NewHistory[float64](cfg.WindowSize, cfg.HistoryMaxAge),
		pitchThreshold: threshold(cfg.Pitch),
		yawThreshold:   threshold(cfg.Yaw),
		rollThreshold:  threshold(cfg.Roll),
		pitchCross:     NewZeroCrossCounter(cfg.ZeroCrossWindow),
		yawCross:       NewZeroCrossCounter(cfg.ZeroCrossWindow),
	}
}

// Process consumes one frame. A nil rotation is a gap: histories age but no
// sample is added and nothing is emitted.
func (c *HeadMotionClassifier) Process(rotation *Matrix3, t time.Duration) HeadGesture {
	if rotation == nil {
		c.pitch.Prune(t)
		c.yaw.Prune(t)
		c.roll.Prune(t)
		return HeadNone
	}

	angles := EulerFromRotation(*rotation)
	c.pitch.Push(angles.Pitch, t)
	c.yaw.Push(angles.Yaw, t)
	c.roll.Push(angles.Roll, t)

	r := HeadReading{
		Angles:         angles,
		SmoothedPitch:  MeanLast(c.pitch, c.cfg.SmoothingSamples),
		SmoothedYaw:    MeanLast(c.yaw, c.cfg.SmoothingSamples),
		PitchThreshold: c.pitchThreshold.Of(c.pitch),
		YawThreshold:   c.yawThreshold.Of(c.yaw),
		RollThreshold:  c.rollThreshold.Of(c.roll),
	}
	r.PitchCrossings = c.pitchCross.Update(r.SmoothedPitch, t)
	r.YawCrossings = c.yawCross.Update(r.SmoothedYaw, t)
	c.reading = r

	if !c.cooledDown(t) {
		return HeadNone
	}

	switch {
	case c.isNod(r):
		c.pitchCross.Clear(r.SmoothedPitch)
		c.emit(t)
		return HeadNod
	case c.isShake(r):
		c.yawCross.Clear(r.SmoothedYaw)
		c.emit(t)
		return HeadShake
	}
	return HeadNone
}

// isNod: pitch oscillates (not drifts) while yaw stays quiet and roll shows
// the slight tilt that accompanies a real nod.
func (c *HeadMotionClassifier) isNod(r HeadReading) bool {
	cfg := c.cfg
	return c.pitch.Len() >= cfg.WindowSize &&
		math.Abs(r.SmoothedPitch) < cfg.MaxSmoothedAngle &&
		r.PitchThreshold > cfg.Pitch.Base*cfg.NodPitchBand.Min &&
		r.PitchThreshold < cfg.Pitch.Base*cfg.NodPitchBand.Max &&
		r.PitchCrossings >= cfg.ZeroCrossCount &&
		r.YawThreshold < cfg.Yaw.Base*cfg.QuietRatio &&
		cfg.NodRollBand.Contains(r.RollThreshold)
}

func (c *HeadMotionClassifier) isShake(r HeadReading) bool {
	cfg := c.cfg
	return c.yaw.Len() >= cfg.WindowSize &&
		math.Abs(r.SmoothedYaw) < cfg.MaxSmoothedAngle &&
		r.YawThreshold > cfg.Yaw.Base*cfg.ShakeYawBand.Min &&
		r.YawThreshold < cfg.Yaw.Base*cfg.ShakeYawBand.Max &&
		r.YawCrossings >= cfg.ZeroCrossCount &&
		r.PitchThreshold < cfg.Pitch.Base*cfg.QuietRatio &&
		cfg.ShakeRollBand.Contains(r.RollThreshold)
}

func (c *HeadMotionClassifier) cooledDown(t time.Duration) bool {
	return !c.hasEmitted || t-c.lastEmit >= c.cfg.Cooldown
}

func (c *HeadMotionClassifier) emit(t time.Duration) {
	c.lastEmit = t
	c.hasEmitted = true
}

// Reading returns the signals computed for the last frame with rotation data.
func (c *HeadMotionClassifier) Reading() HeadReading { return c.reading }

// SmoothedPitch returns the current smoothed pitch in degrees, false when no
// samples are retained.
func (c *HeadMotionClassifier) SmoothedPitch() (float64, bool) {
	if c.pitch.Len() == 0 {
		return 0, false
	}
	return MeanLast(c.pitch, c.cfg.SmoothingSamples), true
}

// Reset clears all histories and re-arms the cooldown.
func (c *HeadMotionClassifier) Reset() {
	c.pitch.Clear()
	c.yaw.Clear()
	c.roll.Clear()
	c.pitchCross.Reset()
	c.yawCross.Reset()
	c.hasEmitted = false
	c.lastEmit = 0
	c.reading = HeadReading{}
}
