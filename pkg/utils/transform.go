package utils

import (
	"strings"
)

func BoolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// TrimBaseURL strips trailing slashes so paths can be appended with a leading "/".
func TrimBaseURL(in string) string {
	return strings.TrimRight(strings.TrimSpace(in), "/")
}
