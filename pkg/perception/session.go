package perception

// Session owns one independent set of classifiers for a single user or
// camera. It is not safe for concurrent use; distinct sessions share no
// state and may run on separate goroutines.
type Session struct {
	cfg     Config
	head    *HeadMotionClassifier
	gaze    *GazeDirectionClassifier
	gesture *GestureEventEngine

	lastGaze    GazeState
	gazeEmitted bool
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	refiner PupilRefiner
}

// WithPupilRefiner enables pixel-level pupil refinement for frames that
// carry an image.
func WithPupilRefiner(r PupilRefiner) Option {
	return func(o *sessionOptions) { o.refiner = r }
}

// NewSession validates cfg and builds a session.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Session{
		cfg:     cfg,
		head:    NewHeadMotionClassifier(cfg.Head),
		gaze:    NewGazeDirectionClassifier(cfg.Gaze, o.refiner),
		gesture: NewGestureEventEngine(cfg.Gesture),
	}, nil
}

// Process runs every classifier on obs and collects the resulting events,
// in head, gaze, gesture order.
func (s *Session) Process(obs FrameObservation) EventBatch {
	batch := EventBatch{Timestamp: obs.Timestamp}

	if m := s.head.Process(obs.Rotation, obs.Timestamp); m != HeadNone {
		batch.Events = append(batch.Events, HeadMotion{Motion: m})
	}

	var pitch float64
	if obs.Rotation != nil {
		if p, ok := s.head.SmoothedPitch(); ok {
			pitch = Radians(p)
		}
	}
	if state := s.gaze.Process(obs, pitch); state.Valid && s.gazeChanged(state) {
		s.lastGaze = state
		s.gazeEmitted = true
		batch.Events = append(batch.Events, GazeUpdate{
			Direction:  state.Direction,
			Confidence: state.Confidence,
			Distracted: state.Distracted,
			Horizontal: state.Ratios.Horizontal,
			Vertical:   state.Ratios.Vertical,
		})
	}

	if cmd, ok := s.gesture.Process(obs); ok {
		batch.Events = append(batch.Events, cmd)
	}
	return batch
}

func (s *Session) gazeChanged(state GazeState) bool {
	if !s.gazeEmitted {
		return true
	}
	return state.Direction != s.lastGaze.Direction || state.Distracted != s.lastGaze.Distracted
}

// Gaze returns the latest gaze state.
func (s *Session) Gaze() GazeState { return s.gaze.State() }

// Head returns the signals computed for the last frame with rotation data.
func (s *Session) Head() HeadReading { return s.head.Reading() }

// Config returns the configuration the session was built with.
func (s *Session) Config() Config { return s.cfg }

// Reset re-arms all debounce, cooldown and distraction state without
// discarding the session.
func (s *Session) Reset() {
	s.head.Reset()
	s.gaze.Reset()
	s.gesture.Reset()
	s.lastGaze = GazeState{}
	s.gazeEmitted = false
}
