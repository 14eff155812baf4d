package perception

import (
	"math"
	"time"
)

// Direction is one of nine gaze regions.
type Direction string

const (
	GazeCenter    Direction = "center"
	GazeLeft      Direction = "left"
	GazeRight     Direction = "right"
	GazeUp        Direction = "up"
	GazeDown      Direction = "down"
	GazeUpLeft    Direction = "up_left"
	GazeUpRight   Direction = "up_right"
	GazeDownLeft  Direction = "down_left"
	GazeDownRight Direction = "down_right"
)

// Primary reports whether d is one of left/right/up/down. Only primary
// directions count towards distraction.
func (d Direction) Primary() bool {
	switch d {
	case GazeLeft, GazeRight, GazeUp, GazeDown:
		return true
	}
	return false
}

// GazeRatios are the combined, mirrored and pitch-compensated ratios the
// 9-region classifier works on.
type GazeRatios struct {
	Horizontal float64
	Vertical   float64
}

// GazeState is the classifier's view after the latest frame with face data.
type GazeState struct {
	Direction  Direction
	Confidence float64
	Ratios     GazeRatios
	Away       bool          // an away excursion is in progress
	AwayStart  time.Duration // valid when Away
	Distracted bool
	Eyes       [2]EyeReading // indexed by Eye, smoothed ratios
	Valid      bool          // false until the first usable face frame
}

type eyeHistory struct {
	horizontal *History[float64]
	vertical   *History[float64]
	pupil      *History[Point2]
	gaze       *History[[3]float64]
}

// GazeDirectionClassifier classifies gaze into nine regions and tracks
// sustained distraction.
type GazeDirectionClassifier struct {
	cfg         GazeConfig
	estimator   *IrisRatioEstimator
	eyes        [2]eyeHistory
	distraction *DistractionTracker
	state       GazeState
}

// NewGazeDirectionClassifier creates a classifier; refiner may be nil.
func NewGazeDirectionClassifier(cfg GazeConfig, refiner PupilRefiner) *GazeDirectionClassifier {
	c := &GazeDirectionClassifier{
		cfg:         cfg,
		estimator:   NewIrisRatioEstimator(cfg, refiner),
		distraction: NewDistractionTracker(cfg.DistractionThreshold, cfg.MaxGap),
		state:       GazeState{Direction: GazeCenter},
	}
	for i := range c.eyes {
		c.eyes[i] = eyeHistory{
			horizontal: NewHistory[float64](cfg.HistorySize, cfg.HistoryMaxAge),
			vertical:   NewHistory[float64](cfg.HistorySize, cfg.HistoryMaxAge),
			pupil:      NewHistory[Point2](cfg.HistorySize, cfg.HistoryMaxAge),
			gaze:       NewHistory[[3]float64](cfg.HistorySize, cfg.HistoryMaxAge),
		}
	}
	return c
}

// Process consumes one frame. headPitch is in radians (positive = chin up).
// Without usable face landmarks the frame is a gap: histories age, the
// state is returned unchanged and the away timer is not evaluated.
func (c *GazeDirectionClassifier) Process(obs FrameObservation, headPitch float64) GazeState {
	t := obs.Timestamp
	w, h := obs.frameSize(c.cfg)

	var raw [2]EyeReading
	ok := obs.FaceLandmarks != nil
	for _, eye := range []Eye{RightEye, LeftEye} {
		if !ok {
			break
		}
		raw[eye], ok = c.estimator.Estimate(obs.FaceLandmarks, eye, obs.Frame, w, h)
	}
	if !ok {
		c.age(t)
		return c.state
	}

	consistent, score := eyeConsistency(c.cfg, raw[RightEye], raw[LeftEye])

	var smoothed [2]EyeReading
	for _, eye := range []Eye{RightEye, LeftEye} {
		smoothed[eye] = c.smooth(eye, raw[eye], t)
	}

	weights := [2]float64{0.5, 0.5}
	if !consistent {
		dominant, other := dominantEye(smoothed[RightEye], smoothed[LeftEye])
		weights[dominant] = c.cfg.DominantEyeWeight
		weights[other] = 1 - c.cfg.DominantEyeWeight
	}

	avgH := weights[RightEye]*smoothed[RightEye].Horizontal + weights[LeftEye]*smoothed[LeftEye].Horizontal
	avgV := weights[RightEye]*smoothed[RightEye].Vertical + weights[LeftEye]*smoothed[LeftEye].Vertical
	if c.cfg.MirrorHorizontal {
		avgH = -avgH
	}
	ratios := GazeRatios{
		Horizontal: avgH,
		Vertical:   clamp(avgV+headPitch*c.cfg.PitchCompensation, -1, 1),
	}

	direction := c.Classify(ratios)
	distracted, _ := c.distraction.Update(direction, t)
	awayStart, away := c.distraction.AwayStart()

	c.state = GazeState{
		Direction:  direction,
		Confidence: math.Max(math.Abs(ratios.Horizontal), math.Abs(ratios.Vertical)) * score,
		Ratios:     ratios,
		Away:       away,
		AwayStart:  awayStart,
		Distracted: distracted,
		Eyes:       smoothed,
		Valid:      true,
	}
	return c.state
}

// Classify maps combined ratios to a region. It is a pure function of the
// ratios and the configuration.
func (c *GazeDirectionClassifier) Classify(r GazeRatios) Direction {
	cfg := c.cfg
	h, v := r.Horizontal, r.Vertical

	if math.Abs(h) <= cfg.HorizontalThreshold && math.Abs(v) <= cfg.VerticalCenter {
		return GazeCenter
	}
	if v <= cfg.UpThreshold {
		return withSide(h, cfg.HorizontalCenter, GazeUp, GazeUpLeft, GazeUpRight)
	}
	if v >= cfg.DownThreshold {
		return withSide(h, cfg.HorizontalCenter, GazeDown, GazeDownLeft, GazeDownRight)
	}
	switch {
	case h > cfg.HorizontalThreshold:
		return GazeRight
	case h < -cfg.HorizontalThreshold:
		return GazeLeft
	}
	// Between the tight vertical center band and the strict up/down bands.
	return GazeCenter
}

func withSide(h, center float64, mid, left, right Direction) Direction {
	switch {
	case h > center:
		return right
	case h < -center:
		return left
	}
	return mid
}

func (c *GazeDirectionClassifier) smooth(eye Eye, raw EyeReading, t time.Duration) EyeReading {
	hist := c.eyes[eye]
	alpha := c.cfg.EMAAlpha
	out := raw
	out.Horizontal = SmoothPush(hist.horizontal, raw.Horizontal, alpha, t)
	out.Vertical = SmoothPush(hist.vertical, raw.Vertical, alpha, t)

	hist.pupil.Prune(t)
	if last, ok := hist.pupil.Latest(); ok {
		out.Pupil = Point2{
			X: EMA(last.Value.X, raw.Pupil.X, alpha),
			Y: EMA(last.Value.Y, raw.Pupil.Y, alpha),
		}
	}
	hist.pupil.Push(out.Pupil, t)
	hist.gaze.Push(raw.Gaze, t)
	return out
}

func (c *GazeDirectionClassifier) age(t time.Duration) {
	for _, hist := range c.eyes {
		hist.horizontal.Prune(t)
		hist.vertical.Prune(t)
		hist.pupil.Prune(t)
		hist.gaze.Prune(t)
	}
}

// State returns the latest state without consuming a frame.
func (c *GazeDirectionClassifier) State() GazeState { return c.state }

// Reset clears all smoothing history and distraction state.
func (c *GazeDirectionClassifier) Reset() {
	for _, hist := range c.eyes {
		hist.horizontal.Clear()
		hist.vertical.Clear()
		hist.pupil.Clear()
		hist.gaze.Clear()
	}
	c.distraction.Reset()
	c.state = GazeState{Direction: GazeCenter}
}

// dominantEye picks the eye with the larger vertical excursion. Ties go to
// the left eye.
func dominantEye(right, left EyeReading) (dominant, other Eye) {
	if math.Abs(left.Vertical) >= math.Abs(right.Vertical) {
		return LeftEye, RightEye
	}
	return RightEye, LeftEye
}

// DistractionTracker times continuous excursions into primary off-center
// directions.
type DistractionTracker struct {
	threshold time.Duration
	maxGap    time.Duration

	away       bool
	awayStart  time.Duration
	distracted bool
	seen       bool
	lastSeen   time.Duration
}

// NewDistractionTracker creates a tracker that flags distraction once an
// excursion lasts longer than threshold. Samples further apart than maxGap
// break the excursion.
func NewDistractionTracker(threshold, maxGap time.Duration) *DistractionTracker {
	return &DistractionTracker{threshold: threshold, maxGap: maxGap}
}

// Update records a direction sample at t. started is true only on the
// sample that turned distracted on, so it fires once per excursion.
func (d *DistractionTracker) Update(dir Direction, t time.Duration) (distracted, started bool) {
	if d.seen && t-d.lastSeen > d.maxGap {
		d.clear()
	}
	d.seen = true
	d.lastSeen = t

	if !dir.Primary() {
		d.clear()
		return false, false
	}
	if !d.away {
		d.away = true
		d.awayStart = t
	}
	if !d.distracted && t-d.awayStart > d.threshold {
		d.distracted = true
		started = true
	}
	return d.distracted, started
}

// AwayStart returns when the current excursion began.
func (d *DistractionTracker) AwayStart() (time.Duration, bool) {
	return d.awayStart, d.away
}

// Reset forgets the excursion and the last sample time.
func (d *DistractionTracker) Reset() {
	d.clear()
	d.seen = false
	d.lastSeen = 0
}

func (d *DistractionTracker) clear() {
	d.away = false
	d.awayStart = 0
	d.distracted = false
}
