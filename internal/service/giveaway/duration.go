package giveaway

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxDuration is the longest giveaway accepted.
const MaxDuration = 365 * 24 * time.Hour

// ParseDuration accepts "<n> <unit>" where unit is sec, min or hour in any
// of their singular or plural spellings.
func ParseDuration(s string) (time.Duration, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var unit time.Duration
	switch fields[1] {
	case "sec", "second", "seconds":
		unit = time.Second
	case "min", "minute", "minutes":
		unit = time.Minute
	case "hour", "hours":
		unit = time.Hour
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidDuration, fields[1])
	}
	if int64(n) > int64(MaxDuration/unit) {
		return 0, fmt.Errorf("%w: longer than %s", ErrInvalidDuration, MaxDuration)
	}
	return time.Duration(n) * unit, nil
}
