// Package ambient feeds the platform reduced-motion signal into a motion
// preference. The signal comes from an MQTT topic or from a watched file.
package ambient

import (
	"strings"
)

// Sink receives the platform signal. *seqplay.MotionPreference is a Sink.
type Sink interface {
	SetAmbient(reduced bool)
}

// ParseSignal maps a payload to the reduced-motion flag. It accepts the
// media query values ("reduce", "no-preference") and the usual booleans.
func ParseSignal(payload string) (reduced bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "reduce", "true", "1", "on", "yes":
		return true, true
	case "no-preference", "false", "0", "off", "no":
		return false, true
	}
	return false, false
}
