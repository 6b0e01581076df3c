package govee

import "strings"

// NamePrefix is the fixed model part of the advertised name. The firmware appends
// the last two MAC bytes, e.g. "GVH5075_CBD1".
const NamePrefix = "GVH5075_"

// Accepts reports whether an advertised name belongs to a supported sensor.
// The match is byte-exact and case-sensitive.
func Accepts(name string) bool {
	return strings.HasPrefix(name, NamePrefix)
}
