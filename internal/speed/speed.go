// Package speed holds the pure kinematics of the race: how typing input
// turns into a velocity and how velocity turns into track position. It has
// no state of its own so both halves can be exercised independently by the
// tick loop and by tests.
package speed

import "math"

// Track and player-model constants, in percent of track per second.
const (
	TrackLen  = 100.0
	BaseSpeed = 10.0 // floor the decay model never drops below
	CharInc   = 0.7  // velocity bump per correctly typed character
	MaxSpeed  = 40.0
	IdleDecay = 6.0 // linear decay per second while idle
)

// WPM-curve model constants.
const (
	MinWPM   = 20.0
	MaxWPM   = 160.0
	MinSpeed = BaseSpeed
	CurveExp = 1.4
)

// Monster kinematics.
const (
	MonsterStartGap  = 8.0 // starts this far behind the start line
	MonsterBaseSpeed = 0.4
	MonsterAccel     = 0.1 // per second
	MonsterMaxSpeed  = 14.0
)

func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// ApplyCorrectChar bumps velocity for one correct keystroke, capped at MaxSpeed.
func ApplyCorrectChar(speed float64) float64 {
	return Clamp(speed+CharInc, 0, MaxSpeed)
}

// Decay brings an idle player's velocity linearly back toward BaseSpeed.
// It never returns less than BaseSpeed regardless of how long dt is.
func Decay(speed, dt float64) float64 {
	if speed <= BaseSpeed {
		return BaseSpeed
	}
	next := speed - IdleDecay*dt
	if next <= BaseSpeed {
		return BaseSpeed
	}
	return next
}

// FromWPM maps a reported words-per-minute into a velocity on the curve
// model. Inputs below MinWPM pin to MinSpeed, at or above MaxWPM to MaxSpeed.
func FromWPM(wpm float64) float64 {
	norm := (Clamp(wpm, MinWPM, MaxWPM) - MinWPM) / (MaxWPM - MinWPM)
	return MinSpeed + math.Pow(norm, CurveExp)*(MaxSpeed-MinSpeed)
}

// Integrate advances a track position by speed*dt, clamped to [0, TrackLen].
func Integrate(pos, speed, dt float64) float64 {
	return Clamp(pos+speed*dt, 0, TrackLen)
}

// MonsterAdvance accelerates the monster and integrates its position.
// Unlike player positions the monster may sit behind the start line, so the
// position is only clamped at the finish.
func MonsterAdvance(pos, vel, dt float64) (newPos, newVel float64) {
	newVel = math.Min(vel+MonsterAccel*dt, MonsterMaxSpeed)
	newPos = math.Min(pos+newVel*dt, TrackLen)
	return newPos, newVel
}
