// Package perception turns per-frame detector output (head rotation, face
// mesh landmarks, hand landmarks and a gesture label) into debounced
// semantic events: head nods and shakes, gaze direction and sustained
// distraction, and hand gesture commands.
//
// A Session is fed FrameObservation values in frame order and returns an
// EventBatch per frame:
//
//	sess, err := perception.NewSession(perception.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	for obs := range frames {
//		batch := sess.Process(obs)
//		for _, ev := range batch.Events {
//			switch e := ev.(type) {
//			case perception.HeadMotion:
//			case perception.GazeUpdate:
//			case perception.GestureCommand:
//			}
//		}
//	}
//
// Timestamps are monotonic offsets and must be non-decreasing; the result of
// feeding out-of-order timestamps is undefined. Every temporal window is
// inclusive: a sample exactly one window old still counts.
//
// The package performs no I/O, never logs and never blocks. Missing or
// malformed per-frame data is treated as absent. The only error surface is
// configuration validation in NewSession.
package perception
