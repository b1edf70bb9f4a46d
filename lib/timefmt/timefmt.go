// Package timefmt validates the HH:MM strings the automation passes into
// time fields. The target site silently mangles anything looser, so the
// rules are strict: exactly five characters, zero padded, 24 hour clock.
package timefmt

import "fmt"

// ValidateHHMM returns the input unchanged when it is a valid zero-padded
// 24-hour HH:MM string, and a descriptive error otherwise.
func ValidateHHMM(s string) (string, error) {
	if len(s) != 5 {
		return "", fmt.Errorf("time %q must be exactly 5 characters in HH:MM format", s)
	}
	if s[2] != ':' {
		return "", fmt.Errorf("time %q must separate hours and minutes with a colon", s)
	}

	// each component must be exactly two ASCII digits, no signs or
	// spaces (Atoi would accept "+1")
	hours, ok := twoDigits(s[0], s[1])
	if !ok {
		return "", fmt.Errorf("time %q has non-numeric hours", s)
	}
	minutes, ok := twoDigits(s[3], s[4])
	if !ok {
		return "", fmt.Errorf("time %q has non-numeric minutes", s)
	}

	if hours > 23 {
		return "", fmt.Errorf("time %q has hours outside 00-23", s)
	}
	if minutes > 59 {
		return "", fmt.Errorf("time %q has minutes outside 00-59", s)
	}
	return s, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}
