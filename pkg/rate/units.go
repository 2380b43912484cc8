package rate

import (
	"fmt"
	"strings"
)

// Unit is a presentation unit for throughput.
type Unit string

const (
	BytesPerSecond     Unit = "B/s"
	KilobytesPerSecond Unit = "KB/s"
	MegabytesPerSecond Unit = "MB/s"
	KilobitsPerSecond  Unit = "kbit/s"
	MegabitsPerSecond  Unit = "Mbit/s"
)

// ParseUnit accepts the unit names used in config and query strings.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "b/s", "bytes":
		return BytesPerSecond, nil
	case "kb/s":
		return KilobytesPerSecond, nil
	case "mb/s":
		return MegabytesPerSecond, nil
	case "kbit/s", "kbit":
		return KilobitsPerSecond, nil
	case "mbit/s", "mbit":
		return MegabitsPerSecond, nil
	}
	return "", fmt.Errorf("unknown rate unit: %q", s)
}

// Convert expresses a bytes-per-second rate in unit. Byte units are
// 1024-based, bit units are decimal.
func Convert(bytesPerSec float64, unit Unit) float64 {
	switch unit {
	case KilobytesPerSecond:
		return bytesPerSec / 1024
	case MegabytesPerSecond:
		return bytesPerSec / (1024 * 1024)
	case KilobitsPerSecond:
		return bytesPerSec * 8 / 1e3
	case MegabitsPerSecond:
		return bytesPerSec * 8 / 1e6
	}
	return bytesPerSec
}
