package perception

import "time"

// Config holds every tunable parameter of the perceptual event engine.
// Nothing in the classifiers falls back to hidden constants: a zero field
// is rejected by Validate rather than silently defaulted.
type Config struct {
	Head    HeadConfig    `yaml:"head" json:"head"`
	Gaze    GazeConfig    `yaml:"gaze" json:"gaze"`
	Gesture GestureConfig `yaml:"gesture" json:"gesture"`
}

// Band is an open interval (Min, Max).
type Band struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports Min < v < Max.
func (b Band) Contains(v float64) bool { return v > b.Min && v < b.Max }

// Covers reports Min <= v <= Max.
func (b Band) Covers(v float64) bool { return v >= b.Min && v <= b.Max }

// AxisConfig parameterises the adaptive threshold of one rotation axis.
type AxisConfig struct {
	Base        float64 `yaml:"base" json:"base"`               // degrees
	Sensitivity float64 `yaml:"sensitivity" json:"sensitivity"` // amplitude multiplier
}

// HeadConfig tunes the nod/shake detector. Angles are in degrees.
//
// NOD and SHAKE need WindowSize samples younger than HistoryMaxAge, so the
// camera must deliver at least WindowSize/HistoryMaxAge frames per second
// (15 fps with the defaults). Below that floor neither motion is reported.
type HeadConfig struct {
	WindowSize       int           `yaml:"window_size" json:"window_size"`             // samples per axis (~1s at 30fps)
	HistoryMaxAge    time.Duration `yaml:"history_max_age" json:"history_max_age"`     // samples older than this age out during gaps
	SmoothingSamples int           `yaml:"smoothing_samples" json:"smoothing_samples"` // mean of last N for smoothed pitch/yaw
	AmplitudeWindow  int           `yaml:"amplitude_window" json:"amplitude_window"`   // samples feeding the adaptive threshold
	MinSamples       int           `yaml:"min_samples" json:"min_samples"`             // below this thresholds stay at base

	Pitch AxisConfig `yaml:"pitch" json:"pitch"`
	Yaw   AxisConfig `yaml:"yaw" json:"yaw"`
	Roll  AxisConfig `yaml:"roll" json:"roll"`

	ZeroCrossWindow  time.Duration `yaml:"zero_cross_window" json:"zero_cross_window"`
	ZeroCrossCount   int           `yaml:"zero_cross_count" json:"zero_cross_count"`
	Cooldown         time.Duration `yaml:"cooldown" json:"cooldown"` // shared by NOD and SHAKE
	MaxSmoothedAngle float64       `yaml:"max_smoothed_angle" json:"max_smoothed_angle"`
	QuietRatio       float64       `yaml:"quiet_ratio" json:"quiet_ratio"` // other axis threshold must stay below base × this

	NodPitchBand  Band `yaml:"nod_pitch_band" json:"nod_pitch_band"`   // multiples of Pitch.Base
	NodRollBand   Band `yaml:"nod_roll_band" json:"nod_roll_band"`     // degrees
	ShakeYawBand  Band `yaml:"shake_yaw_band" json:"shake_yaw_band"`   // multiples of Yaw.Base
	ShakeRollBand Band `yaml:"shake_roll_band" json:"shake_roll_band"` // degrees
}

// GazeConfig tunes iris-ratio estimation, the 9-region classifier and
// distraction detection. Ratios live in [-1, 1].
type GazeConfig struct {
	EMAAlpha      float64       `yaml:"ema_alpha" json:"ema_alpha"`
	HistorySize   int           `yaml:"history_size" json:"history_size"`
	HistoryMaxAge time.Duration `yaml:"history_max_age" json:"history_max_age"`

	ConsistencyThreshold        float64 `yaml:"consistency_threshold" json:"consistency_threshold"`
	HorizontalConsistencyWeight float64 `yaml:"horizontal_consistency_weight" json:"horizontal_consistency_weight"`
	VerticalConsistencyWeight   float64 `yaml:"vertical_consistency_weight" json:"vertical_consistency_weight"`
	DominantEyeWeight           float64 `yaml:"dominant_eye_weight" json:"dominant_eye_weight"` // used when the eyes disagree

	VerticalOffset    float64 `yaml:"vertical_offset" json:"vertical_offset"`       // camera-to-eye tilt compensation
	PitchCompensation float64 `yaml:"pitch_compensation" json:"pitch_compensation"` // per radian of head pitch
	MirrorHorizontal  bool    `yaml:"mirror_horizontal" json:"mirror_horizontal"`

	HorizontalThreshold float64 `yaml:"horizontal_threshold" json:"horizontal_threshold"` // center/left/right split
	HorizontalCenter    float64 `yaml:"horizontal_center" json:"horizontal_center"`       // diagonal split inside up/down
	VerticalCenter      float64 `yaml:"vertical_center" json:"vertical_center"`
	UpThreshold         float64 `yaml:"up_threshold" json:"up_threshold"`
	DownThreshold       float64 `yaml:"down_threshold" json:"down_threshold"`

	DistractionThreshold time.Duration `yaml:"distraction_threshold" json:"distraction_threshold"`
	MaxGap               time.Duration `yaml:"max_gap" json:"max_gap"` // a face gap longer than this restarts the away timer

	EyeSphereRadius    float64 `yaml:"eye_sphere_radius" json:"eye_sphere_radius"`
	DepthScale         float64 `yaml:"depth_scale" json:"depth_scale"` // × image height
	EyeCropPadding     int     `yaml:"eye_crop_padding" json:"eye_crop_padding"`
	DefaultFrameWidth  int     `yaml:"default_frame_width" json:"default_frame_width"`
	DefaultFrameHeight int     `yaml:"default_frame_height" json:"default_frame_height"`
}

// GestureConfig tunes the hand gesture engine. Landmark distances are in
// normalized image units.
type GestureConfig struct {
	StabilityDuration time.Duration `yaml:"stability_duration" json:"stability_duration"`
	DynamicWindow     time.Duration `yaml:"dynamic_window" json:"dynamic_window"`
	HistorySlack      time.Duration `yaml:"history_slack" json:"history_slack"`
	HistorySize       int           `yaml:"history_size" json:"history_size"`

	ShakeWindow     time.Duration `yaml:"shake_window" json:"shake_window"`
	ShakeThreshold  float64       `yaml:"shake_threshold" json:"shake_threshold"` // excursion must reach 2× this
	ShakeMinSamples int           `yaml:"shake_min_samples" json:"shake_min_samples"`

	ThumbLateral       float64 `yaml:"thumb_lateral" json:"thumb_lateral"`             // |thumbTip.x - wrist.x| for an open palm
	FingerStraightness float64 `yaml:"finger_straightness" json:"finger_straightness"` // min joint cosine for "extended"
	CurlTolerance      float64 `yaml:"curl_tolerance" json:"curl_tolerance"`           // × palm width
	ThumbLeftBand      Band    `yaml:"thumb_left_band" json:"thumb_left_band"`         // thumb angle, degrees, inclusive
	ThumbRightBand     Band    `yaml:"thumb_right_band" json:"thumb_right_band"`
}

// HistoryWindow is how long transition history is retained.
func (g GestureConfig) HistoryWindow() time.Duration {
	return g.DynamicWindow + g.HistorySlack
}

// DefaultConfig returns the tuned in-cabin defaults.
func DefaultConfig() Config {
	return Config{
		Head: HeadConfig{
			WindowSize:       30,
			HistoryMaxAge:    2 * time.Second,
			SmoothingSamples: 5,
			AmplitudeWindow:  10,
			MinSamples:       5,

			Pitch: AxisConfig{Base: 10, Sensitivity: 2.0}, // vertical motion is smaller, weigh it more
			Yaw:   AxisConfig{Base: 10, Sensitivity: 1.5},
			Roll:  AxisConfig{Base: 2, Sensitivity: 1.2},

			ZeroCrossWindow:  300 * time.Millisecond,
			ZeroCrossCount:   2,
			Cooldown:         1500 * time.Millisecond,
			MaxSmoothedAngle: 20,
			QuietRatio:       1.05,

			NodPitchBand:  Band{Min: 1.5, Max: 2.5},
			NodRollBand:   Band{Min: 3, Max: 6},
			ShakeYawBand:  Band{Min: 1.5, Max: 4},
			ShakeRollBand: Band{Min: 6, Max: 12},
		},
		Gaze: GazeConfig{
			EMAAlpha:      0.15,
			HistorySize:   20,
			HistoryMaxAge: time.Second,

			ConsistencyThreshold:        0.25,
			HorizontalConsistencyWeight: 0.3,
			VerticalConsistencyWeight:   0.7,
			DominantEyeWeight:           0.7,

			VerticalOffset:    0.30,
			PitchCompensation: 0.3,
			MirrorHorizontal:  true,

			HorizontalThreshold: 0.13,
			HorizontalCenter:    0.20,
			VerticalCenter:      0.08,
			UpThreshold:         -0.08,
			DownThreshold:       0.10,

			DistractionThreshold: 1500 * time.Millisecond,
			MaxGap:               500 * time.Millisecond,

			EyeSphereRadius:    15.0,
			DepthScale:         0.003,
			EyeCropPadding:     5,
			DefaultFrameWidth:  640,
			DefaultFrameHeight: 480,
		},
		Gesture: GestureConfig{
			StabilityDuration: time.Second,
			DynamicWindow:     time.Second,
			HistorySlack:      500 * time.Millisecond,
			HistorySize:       128,

			ShakeWindow:     600 * time.Millisecond,
			ShakeThreshold:  0.08,
			ShakeMinSamples: 3,

			ThumbLateral:       0.15,
			FingerStraightness: 0.9, // ~25° bend per joint
			CurlTolerance:      0.1,
			ThumbLeftBand:      Band{Min: -60, Max: 0},
			ThumbRightBand:     Band{Min: -160, Max: -100},
		},
	}
}

// SensitiveConfig reacts faster: shorter holds and a shorter distraction
// threshold, at the cost of more false positives.
func SensitiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Head.Cooldown = time.Second
	cfg.Gaze.DistractionThreshold = time.Second
	cfg.Gaze.EMAAlpha = 0.3
	cfg.Gesture.StabilityDuration = 700 * time.Millisecond
	return cfg
}

// RelaxedConfig suppresses more aggressively for bumpy roads and
// passengers who gesture while talking.
func RelaxedConfig() Config {
	cfg := DefaultConfig()
	cfg.Head.Cooldown = 2 * time.Second
	cfg.Gaze.DistractionThreshold = 2500 * time.Millisecond
	cfg.Gesture.StabilityDuration = 1500 * time.Millisecond
	cfg.Gesture.ShakeThreshold = 0.1
	return cfg
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if err := c.Head.validate(); err != nil {
		return err
	}
	if err := c.Gaze.validate(); err != nil {
		return err
	}
	return c.Gesture.validate()
}

func (h HeadConfig) validate() error {
	ints := []struct {
		name string
		v    int
	}{
		{"head.window_size", h.WindowSize},
		{"head.smoothing_samples", h.SmoothingSamples},
		{"head.amplitude_window", h.AmplitudeWindow},
		{"head.min_samples", h.MinSamples},
		{"head.zero_cross_count", h.ZeroCrossCount},
	}
	for _, f := range ints {
		if f.v <= 0 {
			return invalid(f.name, "must be positive, got %d", f.v)
		}
	}
	if h.SmoothingSamples > h.WindowSize {
		return invalid("head.smoothing_samples", "%d exceeds window size %d", h.SmoothingSamples, h.WindowSize)
	}
	if h.AmplitudeWindow > h.WindowSize {
		return invalid("head.amplitude_window", "%d exceeds window size %d", h.AmplitudeWindow, h.WindowSize)
	}
	axes := []struct {
		name string
		a    AxisConfig
	}{{"head.pitch", h.Pitch}, {"head.yaw", h.Yaw}, {"head.roll", h.Roll}}
	for _, ax := range axes {
		if ax.a.Base <= 0 {
			return invalid(ax.name+".base", "must be positive, got %v", ax.a.Base)
		}
		if ax.a.Sensitivity <= 0 {
			return invalid(ax.name+".sensitivity", "must be positive, got %v", ax.a.Sensitivity)
		}
	}
	if h.ZeroCrossWindow <= 0 {
		return invalid("head.zero_cross_window", "must be positive, got %v", h.ZeroCrossWindow)
	}
	if h.Cooldown < 0 {
		return invalid("head.cooldown", "must not be negative, got %v", h.Cooldown)
	}
	if h.HistoryMaxAge < 0 {
		return invalid("head.history_max_age", "must not be negative, got %v", h.HistoryMaxAge)
	}
	if h.MaxSmoothedAngle <= 0 {
		return invalid("head.max_smoothed_angle", "must be positive, got %v", h.MaxSmoothedAngle)
	}
	if h.QuietRatio < 1 {
		return invalid("head.quiet_ratio", "must be at least 1, got %v", h.QuietRatio)
	}
	bands := []struct {
		name string
		b    Band
	}{
		{"head.nod_pitch_band", h.NodPitchBand},
		{"head.nod_roll_band", h.NodRollBand},
		{"head.shake_yaw_band", h.ShakeYawBand},
		{"head.shake_roll_band", h.ShakeRollBand},
	}
	for _, b := range bands {
		if b.b.Min < 0 || b.b.Min >= b.b.Max {
			return invalid(b.name, "need 0 <= min < max, got (%v, %v)", b.b.Min, b.b.Max)
		}
	}
	return nil
}

func (g GazeConfig) validate() error {
	if g.EMAAlpha <= 0 || g.EMAAlpha > 1 {
		return invalid("gaze.ema_alpha", "must be in (0, 1], got %v", g.EMAAlpha)
	}
	if g.HistorySize <= 0 {
		return invalid("gaze.history_size", "must be positive, got %d", g.HistorySize)
	}
	if g.HistoryMaxAge < 0 {
		return invalid("gaze.history_max_age", "must not be negative, got %v", g.HistoryMaxAge)
	}
	if g.ConsistencyThreshold <= 0 {
		return invalid("gaze.consistency_threshold", "must be positive, got %v", g.ConsistencyThreshold)
	}
	if g.DominantEyeWeight < 0.5 || g.DominantEyeWeight > 1 {
		return invalid("gaze.dominant_eye_weight", "must be in [0.5, 1], got %v", g.DominantEyeWeight)
	}
	if g.HorizontalConsistencyWeight < 0 || g.VerticalConsistencyWeight < 0 ||
		g.HorizontalConsistencyWeight+g.VerticalConsistencyWeight <= 0 {
		return invalid("gaze.consistency_weights", "must be non-negative with a positive sum")
	}
	if g.HorizontalThreshold <= 0 || g.HorizontalCenter <= 0 || g.VerticalCenter <= 0 {
		return invalid("gaze.thresholds", "center and horizontal thresholds must be positive")
	}
	if g.UpThreshold >= g.DownThreshold {
		return invalid("gaze.up_threshold", "%v must be below down threshold %v", g.UpThreshold, g.DownThreshold)
	}
	if g.DistractionThreshold <= 0 {
		return invalid("gaze.distraction_threshold", "must be positive, got %v", g.DistractionThreshold)
	}
	if g.MaxGap <= 0 {
		return invalid("gaze.max_gap", "must be positive, got %v", g.MaxGap)
	}
	if g.EyeSphereRadius <= 0 || g.DepthScale <= 0 {
		return invalid("gaze.eye_model", "sphere radius and depth scale must be positive")
	}
	if g.EyeCropPadding < 0 {
		return invalid("gaze.eye_crop_padding", "must not be negative, got %d", g.EyeCropPadding)
	}
	if g.DefaultFrameWidth <= 0 || g.DefaultFrameHeight <= 0 {
		return invalid("gaze.default_frame_size", "must be positive, got %dx%d", g.DefaultFrameWidth, g.DefaultFrameHeight)
	}
	return nil
}

func (g GestureConfig) validate() error {
	durations := []struct {
		name string
		v    time.Duration
	}{
		{"gesture.stability_duration", g.StabilityDuration},
		{"gesture.dynamic_window", g.DynamicWindow},
		{"gesture.shake_window", g.ShakeWindow},
	}
	for _, d := range durations {
		if d.v <= 0 {
			return invalid(d.name, "must be positive, got %v", d.v)
		}
	}
	if g.HistorySlack < 0 {
		return invalid("gesture.history_slack", "must not be negative, got %v", g.HistorySlack)
	}
	if g.StabilityDuration > g.HistoryWindow() {
		return invalid("gesture.stability_duration", "%v is longer than the history window %v", g.StabilityDuration, g.HistoryWindow())
	}
	if g.HistorySize < 2 {
		return invalid("gesture.history_size", "must be at least 2, got %d", g.HistorySize)
	}
	if g.ShakeThreshold <= 0 {
		return invalid("gesture.shake_threshold", "must be positive, got %v", g.ShakeThreshold)
	}
	if g.ShakeMinSamples < 2 {
		return invalid("gesture.shake_min_samples", "must be at least 2, got %d", g.ShakeMinSamples)
	}
	if g.ThumbLateral <= 0 || g.CurlTolerance < 0 {
		return invalid("gesture.hand_pose", "thumb lateral must be positive and curl tolerance non-negative")
	}
	if g.FingerStraightness <= 0 || g.FingerStraightness > 1 {
		return invalid("gesture.finger_straightness", "must be in (0, 1], got %v", g.FingerStraightness)
	}
	if g.ThumbLeftBand.Min > g.ThumbLeftBand.Max || g.ThumbRightBand.Min > g.ThumbRightBand.Max {
		return invalid("gesture.thumb_bands", "min must not exceed max")
	}
	return nil
}
