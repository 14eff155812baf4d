package perception

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// GestureClass decides how a gesture is debounced.
type GestureClass string

const (
	// ClassContinuous gestures need the full stability hold and fire once
	// per hold.
	ClassContinuous GestureClass = "continuous"
	// ClassInstantaneous gestures fire on detection and may fire again after
	// the raw label changes and returns.
	ClassInstantaneous GestureClass = "instantaneous"
)

// Gesture labels. Classifier labels follow the MediaPipe gesture recognizer;
// Thumb_Left/Thumb_Right are derived from landmarks.
const (
	LabelClosedFist = "Closed_Fist"
	LabelOpenPalm   = "Open_Palm"
	LabelVictory    = "Victory"
	LabelThumbUp    = "Thumb_Up"
	LabelThumbDown  = "Thumb_Down"
	LabelThumbLeft  = "Thumb_Left"
	LabelThumbRight = "Thumb_Right"
	LabelShake      = "Shake"

	LabelFistToVictory  = "Closed_Fist_To_Victory"
	LabelVictoryToFist  = "Victory_To_Closed_Fist"
	LabelFistToOpenPalm = "Closed_Fist_To_Open_Palm"
	LabelOpenPalmToFist = "Open_Palm_To_Closed_Fist"
)

// GestureBinding maps a gesture to the action it triggers.
type GestureBinding struct {
	Action string
	Class  GestureClass
}

// GestureBindings is the command table. Labels missing from it are tracked
// but never emitted.
var GestureBindings = map[string]GestureBinding{
	LabelClosedFist: {"play_pause", ClassContinuous},
	LabelOpenPalm:   {"hang_up", ClassContinuous},
	LabelVictory:    {"answer_call", ClassContinuous},
	LabelThumbLeft:  {"previous_track", ClassContinuous},
	LabelThumbRight: {"next_track", ClassContinuous},
	LabelThumbUp:    {"confirm", ClassContinuous},
	LabelThumbDown:  {"reject", ClassContinuous},

	LabelFistToVictory:  {"volume_up", ClassInstantaneous},
	LabelVictoryToFist:  {"volume_down", ClassInstantaneous},
	LabelFistToOpenPalm: {"map_zoom_in", ClassInstantaneous},
	LabelOpenPalmToFist: {"map_zoom_out", ClassInstantaneous},
	LabelShake:          {"reject", ClassInstantaneous},
}

// transitions lists the recognised ordered label pairs.
var transitions = map[[2]string]string{
	{LabelClosedFist, LabelVictory}:  LabelFistToVictory,
	{LabelVictory, LabelClosedFist}:  LabelVictoryToFist,
	{LabelClosedFist, LabelOpenPalm}: LabelFistToOpenPalm,
	{LabelOpenPalm, LabelClosedFist}: LabelOpenPalmToFist,
}

// Transition returns the dynamic gesture for the ordered pair from→to.
func Transition(from, to string) (string, bool) {
	g, ok := transitions[[2]string{from, to}]
	return g, ok
}

// staticTracker confirms a label once it has been seen unchanged for the
// stability duration. Any change restarts the timer from zero.
type staticTracker struct {
	stability time.Duration

	label   string
	start   time.Duration
	emitted bool
}

// observe feeds the current label ("" for none) and reports whether it is
// confirmed at t.
func (s *staticTracker) observe(label string, t time.Duration) bool {
	if label == "" {
		s.reset()
		return false
	}
	if label != s.label {
		s.label = label
		s.start = t
		s.emitted = false
		return false
	}
	return t-s.start >= s.stability
}

func (s *staticTracker) reset() {
	s.label = ""
	s.start = 0
	s.emitted = false
}

type rawKey struct {
	label string
	hand  bool
}

// GestureEventEngine turns per-frame gesture labels and hand landmarks into
// debounced commands: held static gestures, label transitions and an
// open-palm wave ("shake").
type GestureEventEngine struct {
	cfg GestureConfig

	static   staticTracker // classifier labels
	landmark staticTracker // landmark-derived thumb gestures
	history  *History[string]
	shake    *History[float64]

	confirmed string

	raw       rawKey
	epoch     uint64
	lastFired string
	firedAt   uint64
}

// NewGestureEventEngine creates an engine. cfg must already be valid.
func NewGestureEventEngine(cfg GestureConfig) *GestureEventEngine {
	return &GestureEventEngine{
		cfg:      cfg,
		static:   staticTracker{stability: cfg.StabilityDuration},
		landmark: staticTracker{stability: cfg.StabilityDuration},
		history:  NewHistory[string](cfg.HistorySize, cfg.HistoryWindow()),
		shake:    NewHistory[float64](cfg.HistorySize, cfg.ShakeWindow),
	}
}

// Process consumes one frame and returns at most one command.
func (g *GestureEventEngine) Process(obs FrameObservation) (GestureCommand, bool) {
	t := obs.Timestamp
	label := obs.label()
	pose, hasHand := ReadHandPose(g.cfg, obs.HandLandmarks)

	key := rawKey{label: label, hand: hasHand}
	if key != g.raw {
		g.raw = key
		g.epoch++
	}

	g.history.Prune(t)
	g.confirmed = ""

	if label == "" && !hasHand {
		g.static.reset()
		g.landmark.reset()
		return GestureCommand{}, false
	}

	if g.static.observe(label, t) {
		g.confirmed = label
	}

	var dynamic string
	if label != "" {
		g.history.Push(label, t)
		if g.confirmed == "" {
			dynamic = g.detectTransition()
		}
	}

	if dynamic == "" && hasHand {
		if thumb := thumbGesture(g.cfg, pose); thumb != "" {
			if g.landmark.observe(thumb, t) {
				g.confirmed = thumb
			}
		} else {
			g.landmark.reset()
			if pose.OpenPalm && g.detectShake(pose.Wrist.X, t) {
				dynamic = LabelShake
			}
		}
	} else if !hasHand {
		g.landmark.reset()
	}

	if dynamic != "" {
		return g.fireInstant(dynamic)
	}
	if g.confirmed != "" {
		return g.fireContinuous()
	}
	return GestureCommand{}, false
}

// detectTransition pairs the newest label with the most recent different
// label within the dynamic window.
func (g *GestureEventEngine) detectTransition() string {
	samples := g.history.Samples()
	if len(samples) < 2 {
		return ""
	}
	latest := samples[len(samples)-1]
	for i := len(samples) - 2; i >= 0; i-- {
		prev := samples[i]
		if prev.Value == latest.Value {
			continue
		}
		diff := latest.At - prev.At
		if diff <= 0 || diff > g.cfg.DynamicWindow {
			return ""
		}
		dynamic, ok := Transition(prev.Value, latest.Value)
		if !ok {
			return ""
		}
		g.history.Clear()
		g.static.reset()
		return dynamic
	}
	return ""
}

// detectShake records the wrist x position and reports a wave once the
// excursion over the shake window reaches twice the threshold.
func (g *GestureEventEngine) detectShake(x float64, t time.Duration) bool {
	g.shake.Push(x, t)
	if g.shake.Len() < g.cfg.ShakeMinSamples {
		return false
	}
	xs := g.shake.Values(0)
	if floats.Max(xs)-floats.Min(xs) < 2*g.cfg.ShakeThreshold {
		return false
	}
	g.shake.Clear()
	return true
}

func (g *GestureEventEngine) fireInstant(gesture string) (GestureCommand, bool) {
	binding, ok := GestureBindings[gesture]
	if !ok {
		return GestureCommand{}, false
	}
	if gesture == g.lastFired && g.epoch == g.firedAt {
		return GestureCommand{}, false
	}
	g.lastFired, g.firedAt = gesture, g.epoch
	return GestureCommand{Action: binding.Action, Gesture: gesture, Class: binding.Class}, true
}

func (g *GestureEventEngine) fireContinuous() (GestureCommand, bool) {
	binding, ok := GestureBindings[g.confirmed]
	if !ok || binding.Class != ClassContinuous {
		return GestureCommand{}, false
	}
	tracker := &g.static
	if g.confirmed == g.landmark.label {
		tracker = &g.landmark
	}
	if tracker.emitted {
		return GestureCommand{}, false
	}
	tracker.emitted = true
	return GestureCommand{Action: binding.Action, Gesture: g.confirmed, Class: binding.Class}, true
}

// Confirmed returns the static gesture confirmed on the last frame, or "".
func (g *GestureEventEngine) Confirmed() string { return g.confirmed }

// Reset clears every tracker and buffer.
func (g *GestureEventEngine) Reset() {
	g.static.reset()
	g.landmark.reset()
	g.history.Clear()
	g.shake.Clear()
	g.confirmed = ""
	g.raw = rawKey{}
	g.epoch = 0
	g.lastFired = ""
	g.firedAt = 0
}
