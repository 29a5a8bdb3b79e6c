package lidar

import (
	"strings"

	"github.com/srg/lvx/native"
)

// StateMask is a bit-set over device lifecycle states, used to express which
// states satisfy a wait. Each state maps to the bit at its numeric value.
type StateMask uint32

const (
	MaskInit        StateMask = 1 << native.LidarStateInit
	MaskNormal      StateMask = 1 << native.LidarStateNormal
	MaskPowerSaving StateMask = 1 << native.LidarStatePowerSaving
	MaskStandBy     StateMask = 1 << native.LidarStateStandBy
	MaskError       StateMask = 1 << native.LidarStateError
	MaskUnknown     StateMask = 1 << native.LidarStateUnknown

	// MaskAny accepts any reported state. Unknown is deliberately excluded:
	// it is the pre-contact default, not a state the device reports.
	MaskAny = MaskInit | MaskNormal | MaskPowerSaving | MaskStandBy | MaskError
)

// MaskFor builds a mask accepting exactly the given states.
func MaskFor(states ...native.LidarState) StateMask {
	var m StateMask
	for _, s := range states {
		m |= 1 << s
	}
	return m
}

// Matches reports whether the given state's bit is set in the mask.
func (m StateMask) Matches(s native.LidarState) bool {
	return m&(1<<s) != 0
}

func (m StateMask) String() string {
	if m == 0 {
		return "none"
	}
	names := make([]string, 0, 6)
	for s := native.LidarStateInit; s <= native.LidarStateUnknown; s++ {
		if m.Matches(s) {
			names = append(names, s.String())
		}
	}
	return strings.Join(names, "|")
}
