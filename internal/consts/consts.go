// Package consts holds physical and numerical constants shared across the
// simulator core.
package consts

import "math"

// DefaultSwitchGOn and DefaultSwitchGOff are the closed/open conductances
// for an ideal switch (spec §4.3).
const (
	DefaultSwitchGOn  = 1e3  // 1 mOhm closed resistance
	DefaultSwitchGOff = 1e-9 // ~1 GOhm open resistance
)

// TwoPi is 2*Pi, used pervasively for omega = 2*Pi*f conversions.
const TwoPi = 2 * math.Pi
