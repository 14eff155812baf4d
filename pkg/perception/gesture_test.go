package perception

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openPalm returns an open hand with the wrist at (wristX, 0.8): four
// straight vertical fingers and the thumb extended sideways.
func openPalm(wristX float64) []Point2 {
	pts := make([]Point2, HandLandmarkCount)
	pts[handWrist] = Point2{X: wristX, Y: 0.8}
	for j, idx := range finger(0) {
		step := float64(j + 1)
		pts[idx] = Point2{X: wristX + 0.05*step, Y: 0.7 - 0.02*step}
	}
	for i := 1; i < fingerCount; i++ {
		x := wristX - 0.06 + 0.04*float64(i-1)
		j := finger(i)
		pts[j[0]] = Point2{X: x, Y: 0.6}
		pts[j[1]] = Point2{X: x, Y: 0.5}
		pts[j[2]] = Point2{X: x, Y: 0.45}
		pts[j[3]] = Point2{X: x, Y: 0.4}
	}
	return pts
}

// thumbHand returns a fist with a straight thumb pointing at angleDeg
// (image coordinates, y down) from the wrist.
func thumbHand(angleDeg float64) []Point2 {
	const wx, wy = 0.5, 0.8
	pts := make([]Point2, HandLandmarkCount)
	pts[handWrist] = Point2{X: wx, Y: wy}
	dx, dy := math.Cos(Radians(angleDeg)), math.Sin(Radians(angleDeg))
	for j, idx := range finger(0) {
		step := 0.05 * float64(j+1)
		pts[idx] = Point2{X: wx + dx*step, Y: wy + dy*step}
	}
	for i := 1; i < fingerCount; i++ {
		x := wx - 0.06 + 0.04*float64(i-1)
		j := finger(i)
		pts[j[0]] = Point2{X: x, Y: 0.6}
		pts[j[1]] = Point2{X: x, Y: 0.55}
		pts[j[2]] = Point2{X: x + 0.02, Y: 0.58}
		pts[j[3]] = Point2{X: x + 0.01, Y: 0.62}
	}
	return pts
}

func labelled(name string, at time.Duration) FrameObservation {
	return FrameObservation{Timestamp: at, Gesture: &GestureLabel{Name: name, Score: 0.9}}
}

type gestureHit struct {
	frame int
	cmd   GestureCommand
}

// holdLabel feeds frames [from, to] with the given raw label at 30 fps.
func holdLabel(g *GestureEventEngine, name string, from, to int) []gestureHit {
	var hits []gestureHit
	for i := from; i <= to; i++ {
		if cmd, ok := g.Process(labelled(name, frameTime(i))); ok {
			hits = append(hits, gestureHit{i, cmd})
		}
	}
	return hits
}

func TestReadHandPose(t *testing.T) {
	cfg := DefaultConfig().Gesture

	palm, ok := ReadHandPose(cfg, openPalm(0.5))
	require.True(t, ok)
	assert.True(t, palm.OpenPalm)
	assert.Equal(t, [fingerCount]bool{true, true, true, true, true}, palm.Extended)
	assert.Empty(t, thumbGesture(cfg, palm), "open fingers are not a thumb gesture")

	fist, ok := ReadHandPose(cfg, thumbHand(-30))
	require.True(t, ok)
	assert.False(t, fist.OpenPalm)
	assert.True(t, fist.Extended[0])
	assert.Equal(t, []bool{true, true, true, true}, fist.Curled[1:], "non-thumb fingers curled")
	assert.InDelta(t, -30, fist.ThumbAngle, 1e-9)

	_, ok = ReadHandPose(cfg, openPalm(0.5)[:20])
	assert.False(t, ok, "short landmark set")
}

func TestThumbGesture(t *testing.T) {
	cfg := DefaultConfig().Gesture
	tests := []struct {
		angle float64
		want  string
	}{
		{-30, LabelThumbLeft},
		{-55, LabelThumbLeft},
		{-130, LabelThumbRight},
		{-80, ""},
		{-175, ""},
		{45, ""},
	}
	for _, tt := range tests {
		pose, ok := ReadHandPose(cfg, thumbHand(tt.angle))
		require.True(t, ok)
		if got := thumbGesture(cfg, pose); got != tt.want {
			t.Errorf("thumb at %v°: got %q, want %q", tt.angle, got, tt.want)
		}
	}
}

func TestGestureEngine_Transition(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)

	_, ok := g.Process(labelled(LabelClosedFist, 0))
	assert.False(t, ok)

	cmd, ok := g.Process(labelled(LabelVictory, 400*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, GestureCommand{Action: "volume_up", Gesture: LabelFistToVictory, Class: ClassInstantaneous}, cmd)
	assert.Zero(t, g.history.Len(), "a transition clears the history")
}

func TestGestureEngine_StaleTransition(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)

	_, ok := g.Process(labelled(LabelClosedFist, 0))
	assert.False(t, ok)
	_, ok = g.Process(labelled(LabelVictory, 1200*time.Millisecond))
	assert.False(t, ok, "pair is outside the dynamic window")

	_, ok = g.Process(labelled(LabelOpenPalm, 1600*time.Millisecond))
	assert.False(t, ok, "the stale Closed_Fist must not pair with Open_Palm")
	for _, s := range g.history.Samples() {
		assert.NotEqual(t, LabelClosedFist, s.Value, "Closed_Fist should have aged out")
	}
}

func TestGestureEngine_RepeatedTransitions(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)

	var actions []string
	for _, seg := range []struct {
		label    string
		from, to int
	}{
		{LabelClosedFist, 0, 5},
		{LabelVictory, 6, 11},
		{LabelClosedFist, 12, 17},
		{LabelVictory, 18, 23},
	} {
		for _, h := range holdLabel(g, seg.label, seg.from, seg.to) {
			actions = append(actions, h.cmd.Action)
		}
	}
	assert.Equal(t, []string{"volume_up", "volume_down", "volume_up"}, actions)
}

func TestGestureEngine_StaticConfirmation(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)

	hits := holdLabel(g, LabelClosedFist, 0, 60)
	require.Len(t, hits, 1, "continuous gestures fire once per hold")
	assert.Equal(t, 30, hits[0].frame)
	assert.Equal(t, GestureCommand{Action: "play_pause", Gesture: LabelClosedFist, Class: ClassContinuous}, hits[0].cmd)
	assert.Equal(t, LabelClosedFist, g.Confirmed())

	// Dropping the hand for one frame re-arms the gesture.
	_, ok := g.Process(FrameObservation{Timestamp: frameTime(61)})
	assert.False(t, ok)
	hits = holdLabel(g, LabelClosedFist, 62, 100)
	require.Len(t, hits, 1)
	assert.Equal(t, 92, hits[0].frame)
}

func TestGestureEngine_InterruptedHoldNeverConfirms(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)

	hits := holdLabel(g, LabelThumbUp, 0, 27)
	_, ok := g.Process(labelled("None", frameTime(28)))
	assert.False(t, ok)
	hits = append(hits, holdLabel(g, LabelThumbUp, 29, 56)...)

	assert.Empty(t, hits)
}

func TestGestureEngine_IgnoresUnmappedLabels(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)
	assert.Empty(t, holdLabel(g, "Pointing_Up", 0, 60))
	assert.Equal(t, "Pointing_Up", g.Confirmed(), "still tracked")
	assert.Empty(t, holdLabel(g, "None", 61, 120))
}

func TestGestureEngine_TransitionPreemptsStatic(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)

	hits := holdLabel(g, LabelClosedFist, 0, 45)
	require.Len(t, hits, 1)

	hits = holdLabel(g, LabelOpenPalm, 46, 60)
	require.Len(t, hits, 1)
	assert.Equal(t, 46, hits[0].frame)
	assert.Equal(t, "map_zoom_in", hits[0].cmd.Action)
}

func TestGestureEngine_ThumbFromLandmarks(t *testing.T) {
	tests := []struct {
		name   string
		angle  float64
		action string
	}{
		{"thumb left", -30, "previous_track"},
		{"thumb right", -130, "next_track"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGestureEventEngine(DefaultConfig().Gesture)
			hand := thumbHand(tt.angle)

			var hits []gestureHit
			for i := 0; i <= 60; i++ {
				if cmd, ok := g.Process(FrameObservation{Timestamp: frameTime(i), HandLandmarks: hand}); ok {
					hits = append(hits, gestureHit{i, cmd})
				}
			}
			require.Len(t, hits, 1)
			assert.Equal(t, 30, hits[0].frame)
			assert.Equal(t, tt.action, hits[0].cmd.Action)
			assert.Equal(t, ClassContinuous, hits[0].cmd.Class)
		})
	}
}

func TestGestureEngine_Shake(t *testing.T) {
	tests := []struct {
		name      string
		xs        []float64
		wantShake bool
	}{
		{"small excursion", []float64{0.40, 0.52, 0.38}, false},
		{"wave", []float64{0.30, 0.50, 0.28}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGestureEventEngine(DefaultConfig().Gesture)

			var got []GestureCommand
			for i, x := range tt.xs {
				obs := FrameObservation{Timestamp: ms(200 * i), HandLandmarks: openPalm(x)}
				if cmd, ok := g.Process(obs); ok {
					got = append(got, cmd)
				}
			}
			if !tt.wantShake {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, GestureCommand{Action: "reject", Gesture: LabelShake, Class: ClassInstantaneous}, got[0])
			assert.Zero(t, g.shake.Len(), "buffer cleared after a shake")
		})
	}
}

func TestGestureEngine_ShakeNeedsMinSamples(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)
	_, ok := g.Process(FrameObservation{Timestamp: 0, HandLandmarks: openPalm(0.2)})
	assert.False(t, ok)
	_, ok = g.Process(FrameObservation{Timestamp: ms(100), HandLandmarks: openPalm(0.6)})
	assert.False(t, ok, "two samples are not enough")
}

func TestGestureEngine_ShakeRefiresAfterLabelChange(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)
	wave := func(start time.Duration) int {
		fired := 0
		for i, x := range []float64{0.30, 0.50, 0.28, 0.50, 0.30, 0.52} {
			if _, ok := g.Process(FrameObservation{Timestamp: start + ms(100*i), HandLandmarks: openPalm(x)}); ok {
				fired++
			}
		}
		return fired
	}

	assert.Equal(t, 1, wave(0), "continued waving does not re-fire")

	// Hand leaves the frame, then waves again.
	_, ok := g.Process(FrameObservation{Timestamp: ms(700)})
	assert.False(t, ok)
	assert.Equal(t, 1, wave(ms(800)))
}

func TestGestureEngine_WaveDuringHoldKeepsHoldSuppressed(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)
	wave := map[int]float64{50: 0.30, 51: 0.50, 52: 0.28, 53: 0.50, 54: 0.30}

	var hits []gestureHit
	for i := 0; i <= 150; i++ {
		x := 0.5
		if wx, ok := wave[i]; ok {
			x = wx
		}
		obs := labelled(LabelOpenPalm, frameTime(i))
		obs.HandLandmarks = openPalm(x)
		if cmd, ok := g.Process(obs); ok {
			hits = append(hits, gestureHit{i, cmd})
		}
	}

	require.Len(t, hits, 2, "one hold, one wave")
	assert.Equal(t, 30, hits[0].frame)
	assert.Equal(t, "hang_up", hits[0].cmd.Action)
	assert.Equal(t, 50, hits[1].frame)
	assert.Equal(t, GestureCommand{Action: "reject", Gesture: LabelShake, Class: ClassInstantaneous}, hits[1].cmd)
}

func TestGestureEngine_EmptyFrameKeepsTransitionHistory(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)

	_, ok := g.Process(labelled(LabelClosedFist, 0))
	assert.False(t, ok)

	_, ok = g.Process(FrameObservation{Timestamp: 200 * time.Millisecond})
	assert.False(t, ok)
	assert.Empty(t, g.static.label, "empty frame restarts the hold timer")
	assert.Equal(t, 1, g.history.Len(), "empty frame keeps the transition history")

	cmd, ok := g.Process(labelled(LabelVictory, 400*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, "volume_up", cmd.Action)
}

func TestGestureEngine_Reset(t *testing.T) {
	g := NewGestureEventEngine(DefaultConfig().Gesture)
	holdLabel(g, LabelClosedFist, 0, 20)
	g.Reset()

	assert.Zero(t, g.history.Len())
	assert.Empty(t, g.Confirmed())

	// The Closed_Fist before Reset is forgotten.
	_, ok := g.Process(labelled(LabelVictory, frameTime(21)))
	assert.False(t, ok)
}
