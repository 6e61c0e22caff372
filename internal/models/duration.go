package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a clock-style duration ("MM:SS" or "H:MM:SS") into a
// time.Duration. Hours are unbounded; minutes and seconds must be 0-59
// when a higher field is present.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock duration: %q", s)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock duration: %q", s)
		}
		// Fields after the first carry at most two digits.
		if i > 0 && (n > 59 || len(p) > 2) {
			return 0, fmt.Errorf("invalid clock duration: %q", s)
		}
		nums[i] = n
	}

	if len(nums) == 2 {
		return time.Duration(nums[0])*time.Minute + time.Duration(nums[1])*time.Second, nil
	}
	return time.Duration(nums[0])*time.Hour +
		time.Duration(nums[1])*time.Minute +
		time.Duration(nums[2])*time.Second, nil
}

// FormatClock renders a duration as clock text: "M:SS" under an hour,
// "H:MM:SS" from an hour up.
func FormatClock(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	if total < 3600 {
		return fmt.Sprintf("%d:%02d", total/60, total%60)
	}
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
